// Package dashboard holds the presentation state served by the HTTP API: the
// last good snapshot, whether a refresh is running, and the last error.
package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"macrodash/internal/fetch"
	"macrodash/internal/model"
	"macrodash/internal/store"
)

const (
	MessageMalformed   = "Failed to parse indicator data from the AI response."
	MessageUnavailable = "Failed to load dashboard data. Please check your API key and try again."
)

type Fetcher interface {
	FetchIndicatorData(ctx context.Context) (model.FetchResult, error)
}

// State mirrors what the dashboard renders. Error and LastUpdated are null
// until there is something to report.
type State struct {
	Indicators       []model.Indicator       `json:"indicators"`
	Loading          bool                    `json:"loading"`
	Error            *string                 `json:"error"`
	LastUpdated      *time.Time              `json:"lastUpdated"`
	GroundingSources []model.GroundingSource `json:"groundingSources"`
}

type Service struct {
	fetcher Fetcher
	store   store.Store
	logger  *zap.Logger
	group   singleflight.Group

	mu        sync.RWMutex
	loading   bool
	attempted bool
	lastError string
}

func New(fetcher Fetcher, snapshots store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{fetcher: fetcher, store: snapshots, logger: logger}
}

// Refresh runs one fetch. Callers arriving while a fetch is in flight wait
// for that fetch instead of starting another. The shared fetch is detached
// from any single caller's cancellation.
func (s *Service) Refresh(ctx context.Context) (State, error) {
	_, err, shared := s.group.Do("refresh", func() (any, error) {
		return nil, s.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		s.logger.Debug("refresh joined in-flight fetch")
	}
	state, stateErr := s.current(ctx)
	if stateErr != nil {
		return state, stateErr
	}
	return state, err
}

func (s *Service) refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.attempted = true
	s.lastError = ""
	s.mu.Unlock()

	result, err := s.fetcher.FetchIndicatorData(ctx)
	if err == nil {
		err = s.store.Replace(ctx, result)
	}

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = UserMessage(err)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("dashboard refresh failed", zap.Error(err))
		return err
	}
	s.logger.Info("dashboard refreshed",
		zap.String("fetch_id", result.ID),
		zap.Int("grounding_sources", len(result.GroundingSources)),
	)
	return nil
}

// State returns the current state. The first call performs the initial load.
func (s *Service) State(ctx context.Context) (State, error) {
	s.mu.RLock()
	attempted := s.attempted
	s.mu.RUnlock()
	if !attempted {
		state, _ := s.Refresh(ctx)
		return state, nil
	}
	return s.current(ctx)
}

// Indicator looks up id in the last successful snapshot.
func (s *Service) Indicator(ctx context.Context, id string) (model.Indicator, bool, error) {
	latest, ok, err := s.store.Latest(ctx)
	if err != nil || !ok {
		return model.Indicator{}, false, err
	}
	indicator, found := latest.Lookup(id)
	return indicator, found, nil
}

func (s *Service) current(ctx context.Context) (State, error) {
	state := State{
		Indicators:       []model.Indicator{},
		GroundingSources: []model.GroundingSource{},
	}

	s.mu.RLock()
	state.Loading = s.loading
	if s.lastError != "" {
		message := s.lastError
		state.Error = &message
	}
	s.mu.RUnlock()

	latest, ok, err := s.store.Latest(ctx)
	if err != nil {
		return state, err
	}
	if ok {
		fetchedAt := latest.FetchedAt
		state.Indicators = latest.Indicators
		state.LastUpdated = &fetchedAt
		state.GroundingSources = latest.GroundingSources
	}
	return state, nil
}

// UserMessage turns a fetch error into the text shown on the dashboard.
func UserMessage(err error) string {
	if errors.Is(err, fetch.ErrMalformedResponse) {
		return MessageMalformed
	}
	if message := strings.TrimSpace(upstreamMessage(err)); message != "" {
		return message
	}
	return MessageUnavailable
}

// upstreamMessage drops the ErrDataUnavailable sentinel from the chain so
// only the transport's own message remains.
func upstreamMessage(err error) string {
	if err == nil {
		return ""
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		parts := make([]string, 0, 1)
		for _, inner := range joined.Unwrap() {
			if inner == fetch.ErrDataUnavailable {
				continue
			}
			parts = append(parts, inner.Error())
		}
		return strings.Join(parts, ": ")
	}
	if err == fetch.ErrDataUnavailable {
		return ""
	}
	return err.Error()
}
