// Package period parses the period labels used by indicator data points.
package period

import (
	"strconv"
	"strings"

	"macrodash/internal/model"
)

type Kind string

const (
	KindMonth   Kind = "M"
	KindQuarter Kind = "Q"
	KindYear    Kind = "Y"
)

type Period struct {
	Kind Kind
	Year int
	// Sub is the month (1-12) or quarter (1-4); zero for years.
	Sub int
}

// Parse accepts YYYY-MM, YYYYMM, YYYY-Qn, YYYYQn and YYYY.
func Parse(label string) (Period, bool) {
	if year, month, ok := parseYearMonth(label); ok {
		return Period{Kind: KindMonth, Year: year, Sub: month}, true
	}
	if year, quarter, ok := parseYearQuarter(label); ok {
		return Period{Kind: KindQuarter, Year: year, Sub: quarter}, true
	}
	if year, ok := parseYear(label); ok {
		return Period{Kind: KindYear, Year: year}, true
	}
	return Period{}, false
}

// End returns a month-resolution key for the last month the period covers,
// so monthly and quarterly labels can be ordered against each other.
func (p Period) End() int {
	switch p.Kind {
	case KindMonth:
		return p.Year*100 + p.Sub
	case KindQuarter:
		return p.Year*100 + p.Sub*3
	case KindYear:
		return p.Year*100 + 12
	default:
		return 0
	}
}

func (p Period) String() string {
	switch p.Kind {
	case KindMonth:
		return strconv.Itoa(p.Year) + "-" + twoDigits(p.Sub)
	case KindQuarter:
		return strconv.Itoa(p.Year) + "-Q" + strconv.Itoa(p.Sub)
	case KindYear:
		return strconv.Itoa(p.Year)
	default:
		return ""
	}
}

// Compare orders periods by the month they end in. Ties prefer the finer
// granularity.
func Compare(a, b Period) int {
	keyA := a.End()
	keyB := b.End()
	switch {
	case keyA > keyB:
		return 1
	case keyA < keyB:
		return -1
	}

	priorityA := priority(a.Kind)
	priorityB := priority(b.Kind)
	switch {
	case priorityA > priorityB:
		return 1
	case priorityA < priorityB:
		return -1
	default:
		return 0
	}
}

// Latest returns the point with the latest parseable date. The input is not
// reordered.
func Latest(points []model.DataPoint) (model.DataPoint, bool) {
	selectedIndex := -1
	var selected Period
	for i, point := range points {
		current, ok := Parse(point.Date)
		if !ok {
			continue
		}
		if selectedIndex == -1 || Compare(current, selected) > 0 {
			selectedIndex = i
			selected = current
		}
	}
	if selectedIndex == -1 {
		return model.DataPoint{}, false
	}
	return points[selectedIndex], true
}

func priority(kind Kind) int {
	switch kind {
	case KindMonth:
		return 3
	case KindQuarter:
		return 2
	case KindYear:
		return 1
	default:
		return 0
	}
}

func parseYearMonth(value string) (int, int, bool) {
	value = strings.TrimSpace(value)
	if len(value) == 6 && isDigits(value) {
		year, _ := strconv.Atoi(value[:4])
		month, _ := strconv.Atoi(value[4:])
		if month >= 1 && month <= 12 {
			return year, month, true
		}
	}

	parts := strings.Split(value, "-")
	if len(parts) == 2 && len(parts[0]) == 4 && isDigits(parts[0]) && isDigits(parts[1]) {
		year, errYear := strconv.Atoi(parts[0])
		month, errMonth := strconv.Atoi(parts[1])
		if errYear == nil && errMonth == nil && month >= 1 && month <= 12 {
			return year, month, true
		}
	}
	return 0, 0, false
}

func parseYearQuarter(value string) (int, int, bool) {
	value = strings.ToUpper(strings.TrimSpace(value))
	for _, separator := range []string{"-Q", "Q"} {
		if !strings.Contains(value, separator) {
			continue
		}
		parts := strings.Split(value, separator)
		if len(parts) != 2 || len(parts[0]) != 4 || !isDigits(parts[0]) || !isDigits(parts[1]) {
			continue
		}
		year, errYear := strconv.Atoi(parts[0])
		quarter, errQuarter := strconv.Atoi(parts[1])
		if errYear == nil && errQuarter == nil && quarter >= 1 && quarter <= 4 {
			return year, quarter, true
		}
	}
	return 0, 0, false
}

func parseYear(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if len(value) != 4 || !isDigits(value) {
		return 0, false
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return year, true
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
