package providers

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sdgmonitor/internal/logging"
	"sdgmonitor/internal/model"
	"sdgmonitor/internal/store"
)

type CachedProvider struct {
	inner  Provider
	store  store.Store
	ttl    time.Duration
	now    func() time.Time
	logger logrus.FieldLogger
}

// Cached wraps p so that series are served from st while younger than ttl.
// Cache failures are logged and fall through to p.
func Cached(p Provider, st store.Store, ttl time.Duration, logger logrus.FieldLogger) *CachedProvider {
	if st == nil {
		st = &store.NopStore{}
	}
	if logger == nil {
		logger = logging.Log
	}
	return &CachedProvider{
		inner:  p,
		store:  st,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func (c *CachedProvider) Name() model.Source {
	return c.inner.Name()
}

func (c *CachedProvider) FetchSeries(ctx context.Context, indicator string, countries []string, fromYear, toYear int) ([]model.Observation, error) {
	if c.ttl <= 0 {
		return c.inner.FetchSeries(ctx, indicator, countries, fromYear, toYear)
	}

	key := CacheKey(c.inner.Name(), indicator, countries, fromYear, toYear)
	log := c.logger.WithField("cache_key", key)

	cached, ok, err := c.store.GetCachedSeries(ctx, key, c.now())
	if err != nil {
		log.WithError(err).Warn("cache read failed")
	} else if ok {
		log.Debug("cache hit")
		return cached, nil
	}

	observations, err := c.inner.FetchSeries(ctx, indicator, countries, fromYear, toYear)
	if err != nil {
		return nil, err
	}
	if err := c.store.PutCachedSeries(ctx, key, observations, c.now().Add(c.ttl)); err != nil {
		log.WithError(err).Warn("cache write failed")
	}
	return observations, nil
}

// CacheKey identifies a series request independently of country order.
func CacheKey(source model.Source, indicator string, countries []string, fromYear, toYear int) string {
	normalized := make([]string, 0, len(countries))
	for _, country := range countries {
		iso3 := strings.ToUpper(strings.TrimSpace(country))
		if iso3 != "" {
			normalized = append(normalized, iso3)
		}
	}
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)
	return fmt.Sprintf("%s|%s|%s|%d-%d", source, strings.TrimSpace(indicator), strings.Join(normalized, ";"), fromYear, toYear)
}

var _ Provider = (*CachedProvider)(nil)
