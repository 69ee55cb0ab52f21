package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain/medication"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/cache"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CachedMedicationRepository is a read-through cache over the catalog.
// Catalog rows are immutable reference data, so entries simply expire.
// Cache failures fall back to the store.
type CachedMedicationRepository struct {
	next    medication.Repository
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Collector
	log     *zap.Logger
}

func NewCachedMedicationRepository(next medication.Repository, c cache.Cache, ttl time.Duration, m *metrics.Collector, log *zap.Logger) *CachedMedicationRepository {
	return &CachedMedicationRepository{next: next, cache: c, ttl: ttl, metrics: m, log: log}
}

func (r *CachedMedicationRepository) Create(ctx context.Context, m *medication.Medication) error {
	return r.next.Create(ctx, m)
}

func (r *CachedMedicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	key := "medication:" + id.String()

	var cached medication.Medication
	if r.lookup(ctx, key, &cached) {
		return &cached, nil
	}

	m, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, m)
	return m, nil
}

func (r *CachedMedicationRepository) List(ctx context.Context, q *medication.ListMedicationsQuery) ([]*medication.Medication, error) {
	key := fmt.Sprintf("medications:%t:%s", q.AvailableOnly, strings.ToLower(strings.TrimSpace(q.Name)))

	var cached []*medication.Medication
	if r.lookup(ctx, key, &cached) {
		return cached, nil
	}

	list, err := r.next.List(ctx, q)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, list)
	return list, nil
}

func (r *CachedMedicationRepository) lookup(ctx context.Context, key string, dst any) bool {
	hit, err := r.cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		r.count("error")
		r.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false
	case hit:
		r.count("hit")
		return true
	default:
		r.count("miss")
		return false
	}
}

func (r *CachedMedicationRepository) store(ctx context.Context, key string, value any) {
	if err := r.cache.Set(ctx, key, value, r.ttl); err != nil {
		r.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedMedicationRepository) count(result string) {
	if r.metrics != nil {
		r.metrics.CatalogCacheResults.WithLabelValues(result).Inc()
	}
}
