package drug

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/medrx/medrx/internal/platform/cache"
)

const (
	minQueryLen = 2
	maxQueryLen = 128
	maxLimit    = 25
)

type Service struct {
	index    Index
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewService builds the search service. cache may be nil to disable result
// caching.
func NewService(index Index, c cache.Cache, cacheTTL time.Duration) *Service {
	return &Service{index: index, cache: c, cacheTTL: cacheTTL}
}

// Search validates the query, runs the ranked passes and merges them. Index
// failures are surfaced uniformly as ErrUnavailable; the underlying detail is
// never exposed to the caller.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]Brand, error) {
	q = strings.TrimSpace(q)
	if len(q) < minQueryLen || len(q) > maxQueryLen {
		return nil, ErrInvalidQuery
	}
	if limit < 1 || limit > maxLimit {
		return nil, ErrInvalidQuery
	}

	key := fmt.Sprintf("drugs:search:%d:%s", limit, strings.ToLower(q))
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var cached []Brand
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	passes, err := s.index.SearchRanked(ctx, q, limit)
	if err != nil {
		return nil, ErrUnavailable
	}
	merged := mergeRanked(limit, passes...)

	if s.cache != nil {
		if raw, err := json.Marshal(merged); err == nil {
			// Best effort; a failed cache write never fails the search.
			_ = s.cache.Set(ctx, key, raw, s.cacheTTL)
		}
	}
	return merged, nil
}
