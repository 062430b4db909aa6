package reconcile

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrodash/internal/catalog"
	"macrodash/internal/model"
)

func TestReconcileSingleIndicator(t *testing.T) {
	specs := catalog.Default().Specs()
	text := "Here is the latest data:\n```json\n" +
		`{"indicators": [{"id": "GDP.Constant", "data": [{"date": "2025-Q1", "value": 5.7}]}]}` +
		"\n```\nLet me know if you need more."

	indicators, err := Reconcile(text, specs)
	require.NoError(t, err)
	require.Len(t, indicators, len(specs))

	for i, indicator := range indicators {
		assert.Equal(t, specs[i], indicator.IndicatorSpec)
		if indicator.ID == "GDP.Constant" {
			assert.Equal(t, []model.DataPoint{{Date: "2025-Q1", Value: 5.7}}, indicator.Data)
			continue
		}
		assert.NotNil(t, indicator.Data, indicator.ID)
		assert.Empty(t, indicator.Data, indicator.ID)
	}
}

func TestReconcileKeepsCatalogOrder(t *testing.T) {
	specs := catalog.Default().Specs()
	text := `{"indicators": [
		{"id": "GNI.GDP.Wholesale.and.Retail", "data": [{"date": "2025-Q2", "value": 1200000}]},
		{"id": "Not.In.Catalog", "data": [{"date": "2025-01", "value": 1}]},
		{"id": "WTI.Crude.Oil.Spot", "data": [{"date": "2024-01", "value": 75.5}, {"date": "2024-02", "value": 76.1}]}
	]}`

	indicators, err := Reconcile(text, specs)
	require.NoError(t, err)
	require.Len(t, indicators, len(specs))
	for i := range specs {
		assert.Equal(t, specs[i].ID, indicators[i].ID)
	}
	assert.Len(t, indicators[0].Data, 2)
	assert.Len(t, indicators[5].Data, 1)
}

func TestReconcileNoObject(t *testing.T) {
	indicators, err := Reconcile("I could not find any data, sorry.", catalog.Default().Specs())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.Nil(t, indicators)
}

func TestReconcileInvalidJSON(t *testing.T) {
	_, err := Reconcile(`{"indicators": [ {id: GDP} ]}`, catalog.Default().Specs())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestReconcileUnbalanced(t *testing.T) {
	_, err := Reconcile(`{"indicators": [`, catalog.Default().Specs())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestReconcileDataNotArray(t *testing.T) {
	text := `{"indicators": [{"id": "CPI.All.Item", "data": "n/a"}, {"id": "Unemployment", "data": {"date": "2025-Q1", "value": 3.9}}]}`

	indicators, err := Reconcile(text, catalog.Default().Specs())
	require.NoError(t, err)
	for _, indicator := range indicators {
		assert.Empty(t, indicator.Data, indicator.ID)
	}
}

func TestReconcileIndicatorsMissingOrWrongType(t *testing.T) {
	for _, text := range []string{
		`{}`,
		`{"indicators": null}`,
		`{"indicators": {"id": "GDP.Constant"}}`,
		`{"data": [{"id": "GDP.Constant", "data": []}]}`,
	} {
		indicators, err := Reconcile(text, catalog.Default().Specs())
		require.NoError(t, err, text)
		require.Len(t, indicators, 6, text)
		for _, indicator := range indicators {
			assert.Empty(t, indicator.Data, text)
		}
	}
}

func TestReconcileFirstDuplicateWins(t *testing.T) {
	text := `{"indicators": [
		{"id": "Inf.All.Item", "data": [{"date": "2025-01", "value": 2.9}]},
		{"id": "Inf.All.Item", "data": [{"date": "2025-01", "value": 9.9}]}
	]}`

	indicators, err := Reconcile(text, catalog.Default().Specs())
	require.NoError(t, err)
	ind, ok := model.FetchResult{Indicators: indicators}.Lookup("Inf.All.Item")
	require.True(t, ok)
	assert.Equal(t, []model.DataPoint{{Date: "2025-01", Value: 2.9}}, ind.Data)
}

func TestReconcileExactIDMatch(t *testing.T) {
	text := `{"indicators": [{"id": "gdp.constant", "data": [{"date": "2025-Q1", "value": 5.7}]}, {"id": " GDP.Constant", "data": [{"date": "2025-Q1", "value": 5.7}]}]}`

	indicators, err := Reconcile(text, catalog.Default().Specs())
	require.NoError(t, err)
	for _, indicator := range indicators {
		assert.Empty(t, indicator.Data, indicator.ID)
	}
}

func TestReconcileLenientPoints(t *testing.T) {
	specs := []model.IndicatorSpec{{ID: "X", Frequency: model.FrequencyMonthly}}
	text := `{"indicators": [{"id": "X", "data": [
		{"date": "2024-03", "value": "4.25"},
		{"date": 2024, "value": 1},
		"garbage",
		{"value": 7},
		{"date": "2024-13", "value": -1e3}
	]}]}`

	indicators, err := Reconcile(text, specs)
	require.NoError(t, err)

	want := []model.DataPoint{
		{Date: "2024-03", Value: 4.25},
		{Date: "2024", Value: 1},
		{Date: "", Value: 7},
		{Date: "2024-13", Value: -1000},
	}
	if diff := cmp.Diff(want, indicators[0].Data); diff != "" {
		t.Fatalf("data points mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "bare",
			text: `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "fenced with prose",
			text: "Sure!\n```json\n{\"a\":{\"b\":[1,2]}}\n```\nDone.",
			want: `{"a":{"b":[1,2]}}`,
		},
		{
			name: "trailing prose with stray brace",
			text: `{"a":1} note: values in {USD}`,
			want: `{"a":1}`,
		},
		{
			name: "braces inside strings",
			text: `{"note":"use } and { freely","esc":"quote \" and }"}`,
			want: `{"note":"use } and { freely","esc":"quote \" and }"}`,
		},
		{
			name: "escaped backslash before closing quote",
			text: `{"path":"C:\\"} tail }`,
			want: `{"path":"C:\\"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONObjectFailures(t *testing.T) {
	for _, text := range []string{"", "no braces here", "} {", `{"a": "unterminated}`} {
		_, err := ExtractJSONObject(text)
		assert.ErrorIs(t, err, ErrMalformedResponse, text)
	}
}
