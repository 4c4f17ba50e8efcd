package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"speciesdesk/internal/infra/persistence/memory"
	"speciesdesk/pkg/domain"
)

var (
	_ domain.Gateway = (*Service)(nil)
	_ domain.Reader  = (*Service)(nil)
)

// Operation names reported to metrics, traces and audit entries.
const (
	OpUpdateSpecies = "update_species"
	OpDeleteSpecies = "delete_species"
	OpGetSpecies    = "get_species"
	OpListSpecies   = "list_species"
	OpInsertSpecies = "insert_species"
)

// Service fronts a species store with logging, metrics, tracing and audit.
// It adds no retry and no authorization: each call maps to one store call.
type Service struct {
	store   domain.SpeciesStore
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	nowFn   func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuditRecorder sets the audit sink for mutations.
func WithAuditRecorder(a AuditRecorder) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.SpeciesStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  zap.NewNop(),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = NewZapAuditRecorder(s.logger)
	}
	return s
}

// NewInMemoryService creates a service over an in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.SpeciesStore { return s.store }

// Update implements domain.Gateway.
func (s *Service) Update(ctx context.Context, id string, payload SpeciesPayload) error {
	return s.mutate(ctx, OpUpdateSpecies, id, func(ctx context.Context) error {
		return s.store.Update(ctx, id, payload)
	})
}

// Delete implements domain.Gateway.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, OpDeleteSpecies, id, func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	})
}

// Insert seeds a record through the store.
func (s *Service) Insert(ctx context.Context, sp Species) (Species, error) {
	var created Species
	err := s.mutate(ctx, OpInsertSpecies, sp.ID, func(ctx context.Context) error {
		var err error
		created, err = s.store.Insert(ctx, sp)
		return err
	})
	return created, err
}

// Get implements domain.Reader.
func (s *Service) Get(ctx context.Context, id string) (Species, error) {
	var sp Species
	err := s.observe(ctx, OpGetSpecies, func(ctx context.Context) error {
		var err error
		sp, err = s.store.Get(ctx, id)
		return err
	})
	return sp, err
}

// List implements domain.Reader.
func (s *Service) List(ctx context.Context) ([]Species, error) {
	var out []Species
	err := s.observe(ctx, OpListSpecies, func(ctx context.Context) error {
		var err error
		out, err = s.store.List(ctx)
		return err
	})
	return out, err
}

// Close releases the underlying store.
func (s *Service) Close() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

func (s *Service) mutate(ctx context.Context, op, id string, fn func(context.Context) error) error {
	started := s.nowFn()
	err := s.observe(ctx, op, fn)
	entry := AuditEntry{
		Operation: op,
		Entity:    EntitySpecies,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  s.nowFn().Sub(started),
		At:        started,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = domain.ErrorMessage(err)
	}
	s.audit.Record(ctx, entry)
	return err
}

func (s *Service) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.logger.Debug("store call failed", zap.String("operation", op), zap.Duration("duration", elapsed), zap.Error(err))
	}
	return err
}
