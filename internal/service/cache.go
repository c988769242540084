package service

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/podium/internal/logger"
	"github.com/yourusername/podium/internal/metrics"
	"github.com/yourusername/podium/internal/models"
	"github.com/yourusername/podium/internal/simulation"
)

// CacheKey identifies one race prediction. Scores is a fingerprint of the
// ranker output so a rescored race misses the cache.
type CacheKey struct {
	RaceID string
	Mode   simulation.ScoreMode
	Trials int
	Depth  int
	Seed   int64
	Scores uint64
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%016x", k.RaceID, k.Mode, k.Trials, k.Depth, k.Seed, k.Scores)
}

// fingerprintScores hashes runner numbers and scores in order.
func fingerprintScores(scores *models.RaceScores) uint64 {
	h := fnv.New64a()
	var buf [16]byte
	for _, s := range scores.Scores {
		binary.BigEndian.PutUint64(buf[:8], uint64(s.RunnerNumber))
		binary.BigEndian.PutUint64(buf[8:], math.Float64bits(s.Score))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// ResultCache provides in-memory caching for race predictions
type ResultCache struct {
	cache     *cache.Cache
	ttl       time.Duration
	log       *logger.SimulationLogger
	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewResultCache creates a new result cache
func NewResultCache(ttl, cleanupInterval time.Duration, log *logrus.Logger) *ResultCache {
	if log == nil {
		log = logger.Discard()
	}
	return &ResultCache{
		cache: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
		log:   logger.NewSimulationLogger(log),
	}
}

// Get retrieves a cached prediction
func (rc *ResultCache) Get(key CacheKey) (*Prediction, bool) {
	k := key.String()
	if item, found := rc.cache.Get(k); found {
		if pred, ok := item.(*Prediction); ok {
			rc.hitCount.Add(1)
			metrics.RecordCacheHit()
			rc.log.LogCacheEvent(key.RaceID, k, true)
			return pred, true
		}
	}

	rc.missCount.Add(1)
	metrics.RecordCacheMiss()
	rc.log.LogCacheEvent(key.RaceID, k, false)
	return nil, false
}

// Set stores a prediction in cache
func (rc *ResultCache) Set(key CacheKey, prediction *Prediction) {
	rc.cache.Set(key.String(), prediction, rc.ttl)
}

// InvalidateRace removes every cached prediction of one race
func (rc *ResultCache) InvalidateRace(raceID string) int {
	removed := 0
	prefix := raceID + "|"
	for k := range rc.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			rc.cache.Delete(k)
			removed++
		}
	}
	return removed
}

// Flush removes all entries
func (rc *ResultCache) Flush() {
	rc.cache.Flush()
}

// Len returns the number of cached entries, expired ones included until cleanup
func (rc *ResultCache) Len() int {
	return rc.cache.ItemCount()
}

// Stats returns hit and miss counts
func (rc *ResultCache) Stats() (hits, misses uint64) {
	return rc.hitCount.Load(), rc.missCount.Load()
}

// HitRate returns the fraction of lookups served from cache
func (rc *ResultCache) HitRate() float64 {
	hits, misses := rc.Stats()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
