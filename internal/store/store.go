package store

import (
	"context"
	"time"

	"sdgmonitor/internal/model"
)

type Store interface {
	GetCachedSeries(ctx context.Context, key string, now time.Time) ([]model.Observation, bool, error)
	PutCachedSeries(ctx context.Context, key string, observations []model.Observation, expiresAt time.Time) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	SaveRun(ctx context.Context, run model.Run, assessments []model.Assessment) error
	LatestRun(ctx context.Context, source model.Source, focal string, goal int) (model.Run, []model.Assessment, error)
	Close() error
}

type NopStore struct{}

func (s *NopStore) GetCachedSeries(ctx context.Context, key string, now time.Time) ([]model.Observation, bool, error) {
	_ = ctx
	_ = key
	_ = now
	return nil, false, nil
}

func (s *NopStore) PutCachedSeries(ctx context.Context, key string, observations []model.Observation, expiresAt time.Time) error {
	_ = ctx
	_ = key
	_ = observations
	_ = expiresAt
	return nil
}

func (s *NopStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (s *NopStore) SaveRun(ctx context.Context, run model.Run, assessments []model.Assessment) error {
	_ = run
	_ = assessments
	return nil
}

func (s *NopStore) LatestRun(ctx context.Context, source model.Source, focal string, goal int) (model.Run, []model.Assessment, error) {
	return model.Run{}, nil, ErrNoRun
}

func (s *NopStore) Close() error {
	return nil
}
