// Package fetch performs one grounded generation per refresh and turns the
// answer into a catalog-aligned FetchResult.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"macrodash/internal/catalog"
	"macrodash/internal/grounding"
	"macrodash/internal/metrics"
	"macrodash/internal/model"
	"macrodash/internal/providers"
	"macrodash/internal/reconcile"
	"macrodash/internal/telemetry"
)

// ErrDataUnavailable is returned when the upstream call itself fails. The
// upstream error stays in the chain.
var ErrDataUnavailable = errors.New("fetch: indicator data unavailable")

// ErrMalformedResponse is returned when the upstream answered but no usable
// JSON object could be recovered from it.
var ErrMalformedResponse = reconcile.ErrMalformedResponse

type Orchestrator struct {
	generator providers.Generator
	catalog   catalog.Catalog
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func New(generator providers.Generator, cat catalog.Catalog, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		generator: generator,
		catalog:   cat,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Catalog() catalog.Catalog {
	return o.catalog
}

// FetchIndicatorData issues exactly one Generate call. On success the result
// holds one indicator per catalog entry, in catalog order.
func (o *Orchestrator) FetchIndicatorData(ctx context.Context) (model.FetchResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "fetch.FetchIndicatorData")
	defer span.End()

	provider := o.generator.Name()
	specs := o.catalog.Specs()
	now := o.now()
	span.SetAttributes(
		attribute.String("fetch.provider", provider),
		attribute.Int("fetch.indicators", len(specs)),
	)

	start := time.Now()
	resp, err := o.generator.Generate(ctx, BuildPrompt(specs, now))
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordFetch(provider, "unavailable", elapsed.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream unavailable")
		o.logger.Error("fetch failed",
			zap.String("provider", provider),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return model.FetchResult{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	indicators, err := reconcile.Reconcile(resp.Text, specs)
	if err != nil {
		metrics.RecordFetch(provider, "malformed", elapsed.Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed response")
		o.logger.Warn("fetch returned unusable payload",
			zap.String("provider", provider),
			zap.Int("text_bytes", len(resp.Text)),
			zap.Error(err),
		)
		return model.FetchResult{}, err
	}

	sources := grounding.Extract(resp.Raw)
	result := model.FetchResult{
		ID:               uuid.NewString(),
		FetchedAt:        now,
		Model:            o.generator.Model(),
		Indicators:       indicators,
		GroundingSources: sources,
	}

	metrics.RecordFetch(provider, "ok", elapsed.Seconds())
	metrics.RecordGroundingSources(len(sources))
	empty := 0
	for _, indicator := range indicators {
		metrics.RecordIndicatorPoints(indicator.ID, len(indicator.Data))
		if len(indicator.Data) == 0 {
			empty++
		}
	}
	span.SetAttributes(
		attribute.String("fetch.id", result.ID),
		attribute.Int("fetch.grounding_sources", len(sources)),
		attribute.Int("fetch.empty_indicators", empty),
	)
	o.logger.Info("fetch completed",
		zap.String("provider", provider),
		zap.String("fetch_id", result.ID),
		zap.Duration("elapsed", elapsed),
		zap.Int("indicators", len(indicators)),
		zap.Int("empty_indicators", empty),
		zap.Int("grounding_sources", len(sources)),
	)
	return result, nil
}

// BuildPrompt asks for recent observations of every indicator, scoped to the
// year before now and the year of now.
func BuildPrompt(specs []model.IndicatorSpec, now time.Time) string {
	current := now.Year()
	previous := current - 1
	example := "INDICATOR_ID"
	if len(specs) > 0 {
		example = specs[0].ID
	}

	var b strings.Builder
	b.WriteString("Find the latest 12 months (or last 4-6 available quarters) of data for the following economic indicators:\n")
	for i, spec := range specs {
		qualifier := string(spec.Frequency)
		if spec.Region != "" {
			qualifier += ", " + spec.Region
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, spec.ID, qualifier)
	}
	b.WriteString("\nReturn the data strictly as a valid JSON object with the following structure:\n")
	b.WriteString("{\n  \"indicators\": [\n    {\n")
	fmt.Fprintf(&b, "      \"id\": %q,\n", example)
	b.WriteString("      \"data\": [{\"date\": \"2024-01\", \"value\": 75.5}, ...]\n")
	fmt.Fprintf(&b, "    },\n    ... (repeat for all %d IDs)\n  ]\n}\n\n", len(specs))
	b.WriteString("Ensure the \"date\" field uses \"YYYY-MM\" format for monthly and \"YYYY-QN\" (e.g., 2024-Q1) for quarterly.\n")
	fmt.Fprintf(&b, "Use only the most recent available real-world data from %d and %d.\n", previous, current)
	return b.String()
}
