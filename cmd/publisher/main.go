package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"macrodash/internal/bootstrap"
	"macrodash/internal/export"
	"macrodash/internal/model"
	"macrodash/internal/period"
)

type metaFile struct {
	GeneratedAt string `json:"generated_at"`
	FetchedAt   string `json:"fetched_at"`
	FetchID     string `json:"fetch_id"`
	Model       string `json:"model,omitempty"`
}

type indicatorsFile struct {
	GeneratedAt      string                  `json:"generated_at"`
	Indicators       []model.Indicator       `json:"indicators"`
	GroundingSources []model.GroundingSource `json:"groundingSources"`
}

type latestFile struct {
	GeneratedAt string        `json:"generated_at"`
	Rows        []latestEntry `json:"rows"`
}

// latestEntry has a nil Period and Value when the indicator came back empty.
type latestEntry struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Frequency model.Frequency `json:"frequency"`
	Points    int             `json:"points"`
	Period    *string         `json:"period"`
	Value     *float64        `json:"value"`
	CSV       string          `json:"csv"`
}

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "publisher: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "publisher",
		Short:         "Build static dashboard data from a collector snapshot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./macrodash.yaml)")
	root.AddCommand(newBuildCmd())
	return root
}

func newBuildCmd() *cobra.Command {
	var inPath, outDir string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write meta.json, indicators.json, latest.json and CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap.Init(cmd.Context(), cfgFile)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			result, err := loadSnapshot(inPath)
			if err != nil {
				return err
			}
			if err := build(result, outDir, time.Now().UTC()); err != nil {
				return err
			}
			rt.Logger.Info("site data written",
				zap.String("out", outDir),
				zap.String("fetch_id", result.ID),
				zap.Int("indicators", len(result.Indicators)),
			)
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ wrote %d indicators to %s\n", len(result.Indicators), outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "snapshot.json", "collector snapshot to publish")
	cmd.Flags().StringVar(&outDir, "out", "site/data", "output directory")
	return cmd
}

func loadSnapshot(path string) (model.FetchResult, error) {
	if strings.TrimSpace(path) == "" {
		return model.FetchResult{}, errors.New("snapshot path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return model.FetchResult{}, fmt.Errorf("read snapshot: %w", err)
	}
	var result model.FetchResult
	if err := json.Unmarshal(content, &result); err != nil {
		return model.FetchResult{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if len(result.Indicators) == 0 {
		return model.FetchResult{}, fmt.Errorf("snapshot %s has no indicators", path)
	}
	return result, nil
}

func build(result model.FetchResult, outDir string, now time.Time) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	generatedAt := now.Format(time.RFC3339)

	meta := metaFile{
		GeneratedAt: generatedAt,
		FetchedAt:   result.FetchedAt.UTC().Format(time.RFC3339),
		FetchID:     result.ID,
		Model:       result.Model,
	}
	if err := writeJSON(filepath.Join(outDir, "meta.json"), meta); err != nil {
		return fmt.Errorf("write meta.json: %w", err)
	}

	sources := result.GroundingSources
	if sources == nil {
		sources = []model.GroundingSource{}
	}
	indicators := indicatorsFile{GeneratedAt: generatedAt, Indicators: result.Indicators, GroundingSources: sources}
	if err := writeJSON(filepath.Join(outDir, "indicators.json"), indicators); err != nil {
		return fmt.Errorf("write indicators.json: %w", err)
	}

	csvDir := filepath.Join(outDir, "csv")
	for _, indicator := range result.Indicators {
		if _, err := export.WriteFile(csvDir, indicator, result.FetchedAt); err != nil {
			return fmt.Errorf("write csv for %s: %w", indicator.ID, err)
		}
	}

	latest := latestFile{GeneratedAt: generatedAt, Rows: buildLatest(result)}
	if err := writeJSON(filepath.Join(outDir, "latest.json"), latest); err != nil {
		return fmt.Errorf("write latest.json: %w", err)
	}
	return nil
}

func buildLatest(result model.FetchResult) []latestEntry {
	rows := make([]latestEntry, 0, len(result.Indicators))
	for _, indicator := range result.Indicators {
		entry := latestEntry{
			ID:        indicator.ID,
			Name:      indicator.Name,
			Unit:      indicator.Unit,
			Frequency: indicator.Frequency,
			Points:    len(indicator.Data),
			CSV:       filepath.ToSlash(filepath.Join("csv", export.FileName(indicator, result.FetchedAt))),
		}
		if point, ok := period.Latest(indicator.Data); ok {
			date, value := point.Date, point.Value
			entry.Period = &date
			entry.Value = &value
		}
		rows = append(rows, entry)
	}
	return rows
}

func writeJSON(path string, value any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
