package store

import (
	"context"

	"macrodash/internal/model"
)

// Store holds the most recent successful fetch. Replace swaps the whole
// snapshot; results from different fetches are never merged.
type Store interface {
	Latest(ctx context.Context) (model.FetchResult, bool, error)
	Replace(ctx context.Context, result model.FetchResult) error
	Close() error
}

type NopStore struct{}

func (s *NopStore) Latest(ctx context.Context) (model.FetchResult, bool, error) {
	_ = ctx
	return model.FetchResult{}, false, nil
}

func (s *NopStore) Replace(ctx context.Context, result model.FetchResult) error {
	_ = ctx
	_ = result
	return nil
}

func (s *NopStore) Close() error {
	return nil
}

var _ Store = (*NopStore)(nil)
