package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"macrodash/internal/export"
	"macrodash/internal/model"
	"macrodash/internal/period"
)

func printResult(w io.Writer, result model.FetchResult) {
	color.New(color.FgWhite, color.Bold).Fprintf(w, "Fetched %s", result.FetchedAt.Local().Format(time.DateTime))
	if result.Model != "" {
		fmt.Fprintf(w, " (%s)", result.Model)
	}
	fmt.Fprintln(w)

	renderTable(w, result.Indicators)

	fmt.Fprintln(w)
	if len(result.GroundingSources) == 0 {
		color.New(color.Faint).Fprintln(w, "No grounding sources returned.")
		return
	}
	color.New(color.FgCyan).Fprintln(w, "Sources:")
	for _, source := range result.GroundingSources {
		fmt.Fprintf(w, "  - %s <%s>\n", source.Title, source.URI)
	}
}

func renderTable(w io.Writer, indicators []model.Indicator) {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header([]string{"ID", "Name", "Points", "Latest Period", "Latest Value", "Unit"})
	_ = table.Bulk(tableRows(indicators))
	_ = table.Render()
}

func tableRows(indicators []model.Indicator) [][]string {
	rows := make([][]string, 0, len(indicators))
	for _, indicator := range indicators {
		latestPeriod, latestValue := "-", "-"
		if point, ok := period.Latest(indicator.Data); ok {
			latestPeriod = point.Date
			latestValue = export.FormatValue(point.Value)
		}
		rows = append(rows, []string{
			indicator.ID,
			indicator.Name,
			strconv.Itoa(len(indicator.Data)),
			latestPeriod,
			latestValue,
			indicator.Unit,
		})
	}
	return rows
}
