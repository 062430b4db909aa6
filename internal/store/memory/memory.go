// Package memory keeps the latest snapshot in process memory.
package memory

import (
	"context"
	"sync/atomic"

	"macrodash/internal/model"
	"macrodash/internal/store"
)

type Store struct {
	latest atomic.Pointer[model.FetchResult]
}

func New() *Store {
	return &Store{}
}

func (s *Store) Latest(ctx context.Context) (model.FetchResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.FetchResult{}, false, err
	}
	current := s.latest.Load()
	if current == nil {
		return model.FetchResult{}, false, nil
	}
	return *current, true, nil
}

func (s *Store) Replace(ctx context.Context, result model.FetchResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.latest.Store(&result)
	return nil
}

func (s *Store) Close() error {
	return nil
}

var _ store.Store = (*Store)(nil)
