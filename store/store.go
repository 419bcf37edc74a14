// Package store persists the per-turn Plan snapshot so a later phase, or a
// restarted process, can recover it without recomputing from scratch.
package store

import (
	"context"
	"errors"
)

type PlanStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// TestPlanStore is a simple in-memory implementation for testing.
type TestPlanStore struct {
	data []byte
	err  error
}

func NewTestPlanStore(data []byte) *TestPlanStore {
	return &TestPlanStore{data: data}
}

func NewTestPlanStoreWithError() *TestPlanStore {
	return &TestPlanStore{err: errors.New("not found")}
}

func (t *TestPlanStore) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

func (t *TestPlanStore) Save(ctx context.Context, data []byte) error {
	if t.err != nil {
		return t.err
	}
	t.data = append([]byte(nil), data...)
	return nil
}
