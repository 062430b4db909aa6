// Package export renders indicators in the dashboard's CSV download format.
package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"macrodash/internal/model"
)

// CSV renders the header row "Date,Value (<unit>)" and one "date,value" row
// per point, newline separated with no trailing newline. Fields are joined
// as-is, without quoting.
func CSV(indicator model.Indicator) string {
	lines := make([]string, 0, len(indicator.Data)+1)
	lines = append(lines, "Date,Value ("+indicator.Unit+")")
	for _, point := range indicator.Data {
		lines = append(lines, point.Date+","+FormatValue(point.Value))
	}
	return strings.Join(lines, "\n")
}

// FormatValue uses the shortest representation that round-trips.
func FormatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func FileName(indicator model.Indicator, at time.Time) string {
	return indicator.ID + "_data_" + at.UTC().Format("2006-01-02") + ".csv"
}

func WriteFile(dir string, indicator model.Indicator, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(indicator, at))
	if err := os.WriteFile(path, []byte(CSV(indicator)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
