package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
	"github.com/MikeSquared-Agency/Solvency/internal/store"
)

// MockStore implements store.Store for handler tests.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateRun(ctx context.Context, run *store.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockStore) CompleteRun(ctx context.Context, run *store.Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockStore) GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Run), args.Error(1)
}

func (m *MockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]*store.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Run), args.Error(1)
}

func (m *MockStore) SaveResults(ctx context.Context, runID uuid.UUID, results []scoring.ScoreResult) error {
	args := m.Called(ctx, runID, results)
	return args.Error(0)
}

func (m *MockStore) ListResults(ctx context.Context, runID uuid.UUID, filter store.ResultFilter) ([]*store.ResultRecord, error) {
	args := m.Called(ctx, runID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.ResultRecord), args.Error(1)
}

func (m *MockStore) GetResult(ctx context.Context, runID uuid.UUID, code string) (*store.ResultRecord, error) {
	args := m.Called(ctx, runID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ResultRecord), args.Error(1)
}

func (m *MockStore) GetLatestResult(ctx context.Context, code, version string) (*store.ResultRecord, error) {
	args := m.Called(ctx, code, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ResultRecord), args.Error(1)
}

func (m *MockStore) GetTierDistribution(ctx context.Context, runID uuid.UUID) ([]store.TierCount, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.TierCount), args.Error(1)
}

func (m *MockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// stubCollector serves fixed sets keyed by municipality code.
type stubCollector struct {
	sets   map[string]scoring.IndicatorSet
	median *float64
}

func (c *stubCollector) FetchIndicators(_ context.Context, _ string) ([]scoring.IndicatorSet, error) {
	out := make([]scoring.IndicatorSet, 0, len(c.sets))
	for _, s := range c.sets {
		out = append(out, s)
	}
	return out, nil
}

func (c *stubCollector) FetchMunicipality(_ context.Context, code, _ string) (*scoring.IndicatorSet, error) {
	s, ok := c.sets[code]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *stubCollector) FetchCarryoverMedian(_ context.Context, _ string) (*float64, error) {
	return c.median, nil
}
