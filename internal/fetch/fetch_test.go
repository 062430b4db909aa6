package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"macrodash/internal/catalog"
	"macrodash/internal/model"
	"macrodash/internal/providers"
	"macrodash/internal/providers/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func newOrchestrator(t *testing.T) (*Orchestrator, *mocks.MockGenerator) {
	t.Helper()
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().Name().Return("mock").AnyTimes()
	gen.EXPECT().Model().Return("mock-model").AnyTimes()
	return New(gen, catalog.Default(), WithClock(func() time.Time { return fixedNow })), gen
}

const groundedRaw = `{"candidates":[{"groundingMetadata":{"groundingChunks":[
	{"web":{"title":"PSA","uri":"https://psa.gov.ph"}},
	{"web":{}}
]}}]}`

func TestFetchIndicatorData(t *testing.T) {
	orchestrator, gen := newOrchestrator(t)
	text := "Here you go:\n```json\n" +
		`{"indicators":[{"id":"GDP.Constant","data":[{"date":"2025-Q1","value":5.4}]}]}` +
		"\n```"
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(providers.Response{Text: text, Raw: []byte(groundedRaw)}, nil).
		Times(1)

	result, err := orchestrator.FetchIndicatorData(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(result.ID)
	assert.NoError(t, err)
	assert.Equal(t, fixedNow, result.FetchedAt)
	assert.Equal(t, "mock-model", result.Model)

	require.Len(t, result.Indicators, catalog.Default().Len())
	for i, spec := range catalog.Default().Specs() {
		assert.Equal(t, spec, result.Indicators[i].IndicatorSpec)
		assert.NotNil(t, result.Indicators[i].Data)
	}
	gdp, ok := result.Lookup("GDP.Constant")
	require.True(t, ok)
	assert.Equal(t, []model.DataPoint{{Date: "2025-Q1", Value: 5.4}}, gdp.Data)
	wti, ok := result.Lookup("WTI.Crude.Oil.Spot")
	require.True(t, ok)
	assert.Empty(t, wti.Data)

	assert.Equal(t, []model.GroundingSource{
		{Title: "PSA", URI: "https://psa.gov.ph"},
		{Title: "Search Result", URI: "#"},
	}, result.GroundingSources)
}

func TestFetchIndicatorDataFreshIDs(t *testing.T) {
	orchestrator, gen := newOrchestrator(t)
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).
		Return(providers.Response{Text: `{"indicators":[]}`}, nil).
		Times(2)

	first, err := orchestrator.FetchIndicatorData(context.Background())
	require.NoError(t, err)
	second, err := orchestrator.FetchIndicatorData(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.NotNil(t, first.GroundingSources)
	assert.Empty(t, first.GroundingSources)
}

func TestFetchIndicatorDataUnavailable(t *testing.T) {
	orchestrator, gen := newOrchestrator(t)
	upstream := errors.New("403 API key not valid")
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(providers.Response{}, upstream)

	result, err := orchestrator.FetchIndicatorData(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, upstream)
	assert.Contains(t, err.Error(), "API key not valid")
	assert.Empty(t, result.Indicators)
}

func TestFetchIndicatorDataMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no object", "I could not find the data."},
		{"invalid json", "{indicators: [}"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orchestrator, gen := newOrchestrator(t)
			gen.EXPECT().Generate(gomock.Any(), gomock.Any()).
				Return(providers.Response{Text: tt.text, Raw: []byte(groundedRaw)}, nil)

			result, err := orchestrator.FetchIndicatorData(context.Background())
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.NotErrorIs(t, err, ErrDataUnavailable)
			assert.Empty(t, result.GroundingSources)
		})
	}
}

func TestFetchIndicatorDataPassesContext(t *testing.T) {
	orchestrator, gen := newOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (providers.Response, error) {
			return providers.Response{}, ctx.Err()
		})

	_, err := orchestrator.FetchIndicatorData(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestFetchIndicatorDataSendsPrompt(t *testing.T) {
	orchestrator, gen := newOrchestrator(t)
	var prompt string
	gen.EXPECT().Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p string) (providers.Response, error) {
			prompt = p
			return providers.Response{Text: `{"indicators":[]}`}, nil
		})

	_, err := orchestrator.FetchIndicatorData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BuildPrompt(catalog.Default().Specs(), fixedNow), prompt)
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(catalog.Default().Specs(), fixedNow)

	assert.Contains(t, prompt, "1. WTI.Crude.Oil.Spot (Monthly)\n")
	assert.Contains(t, prompt, "2. CPI.All.Item (Monthly, Philippines)\n")
	assert.Contains(t, prompt, "4. GDP.Constant (Quarterly, Philippines)\n")
	assert.Contains(t, prompt, "6. GNI.GDP.Wholesale.and.Retail (Quarterly, Philippines)\n")
	assert.Contains(t, prompt, `"indicators"`)
	assert.Contains(t, prompt, "repeat for all 6 IDs")
	assert.Contains(t, prompt, `"YYYY-MM"`)
	assert.Contains(t, prompt, "2024-Q1")
	assert.Contains(t, prompt, "12 months")
	assert.Contains(t, prompt, "4-6 available quarters")
	assert.Contains(t, prompt, "from 2024 and 2025.")
}

func TestBuildPromptFollowsClock(t *testing.T) {
	prompt := BuildPrompt(catalog.Default().Specs(), time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, prompt, "from 2026 and 2027.")
}
