package model

import "time"

type Frequency string

const (
	FrequencyMonthly   Frequency = "Monthly"
	FrequencyQuarterly Frequency = "Quarterly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly:
		return true
	default:
		return false
	}
}

// IndicatorSpec is one catalog entry. Region only scopes the upstream prompt.
type IndicatorSpec struct {
	ID          string    `json:"id" yaml:"id" validate:"required"`
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Unit        string    `json:"unit" yaml:"unit" validate:"required"`
	Frequency   Frequency `json:"frequency" yaml:"frequency" validate:"required,oneof=Monthly Quarterly"`
	Region      string    `json:"region,omitempty" yaml:"region"`
	SourceName  string    `json:"sourceName" yaml:"sourceName" validate:"required"`
	SourceURL   string    `json:"sourceUrl" yaml:"sourceUrl" validate:"required,url"`
	Description string    `json:"description" yaml:"description"`
}

type DataPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type Indicator struct {
	IndicatorSpec
	Data []DataPoint `json:"data"`
}

type GroundingSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type FetchResult struct {
	ID               string            `json:"id"`
	FetchedAt        time.Time         `json:"fetchedAt"`
	Model            string            `json:"model,omitempty"`
	Indicators       []Indicator       `json:"indicators"`
	GroundingSources []GroundingSource `json:"groundingSources"`
}

// Lookup returns the indicator with the given id.
func (r FetchResult) Lookup(id string) (Indicator, bool) {
	for _, indicator := range r.Indicators {
		if indicator.ID == id {
			return indicator, true
		}
	}
	return Indicator{}, false
}
