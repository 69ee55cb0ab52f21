package service

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/metrics"
	"go.uber.org/zap"
)

type AuditRepository interface {
	CreateBatch(ctx context.Context, entries []*domain.AuditLog) error
}

type AuditService struct {
	repo    AuditRepository
	metrics *metrics.Collector
	log     *zap.Logger
	entries chan *domain.AuditLog
	done    chan struct{}
	stop    sync.Once
}

const (
	auditBufferSize = 10_000
	auditBatchSize  = 100
)

func NewAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	return newAuditService(repo, m, log, auditBufferSize)
}

func newAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger, buffer int) *AuditService {
	svc := &AuditService{
		repo:    repo,
		metrics: m,
		log:     log,
		entries: make(chan *domain.AuditLog, buffer),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an audit entry for async persistence.
// If the buffer is full, the entry is dropped and a warning is emitted.
func (s *AuditService) LogAsync(_ context.Context, entry AuditEntry) {
	al := &domain.AuditLog{
		UserID:       entry.UserID,
		UserRole:     entry.UserRole,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		StatusCode:   entry.StatusCode,
		Changes:      entry.Changes,
	}

	select {
	case s.entries <- al:
	default:
		s.metrics.AuditBufferDropped.Inc()
		s.log.Warn("audit log buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource", entry.ResourceType),
		)
	}
}

// Shutdown drains the buffer. LogAsync must not be called afterwards.
// Repeated calls are no-ops.
func (s *AuditService) Shutdown() {
	s.stop.Do(func() {
		close(s.entries)
		select {
		case <-s.done:
		case <-time.After(10 * time.Second):
			s.log.Warn("audit service shutdown timed out; some entries may be lost")
		}
	})
}

// worker writes whatever is queued in batches of up to auditBatchSize.
// It never waits to fill a batch, so a lone entry is written immediately.
func (s *AuditService) worker() {
	defer close(s.done)
	batch := make([]*domain.AuditLog, 0, auditBatchSize)

	for entry := range s.entries {
		batch = append(batch[:0], entry)
	fill:
		for len(batch) < auditBatchSize {
			select {
			case next, ok := <-s.entries:
				if !ok {
					break fill
				}
				batch = append(batch, next)
			default:
				break fill
			}
		}
		s.flush(batch)
	}
}

func (s *AuditService) flush(batch []*domain.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		s.log.Error("failed to persist audit logs", zap.Int("count", len(batch)), zap.Error(err))
		return
	}
	s.metrics.AuditEntriesTotal.Add(float64(len(batch)))
}
