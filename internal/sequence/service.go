package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/lock"
)

const (
	defaultAttempts = 5
	defaultBackoff  = 10 * time.Millisecond
	padWidth        = 3
	// employeeOrigin is the last value seeded for a tenant without employees, so the first one becomes EMP-101.
	employeeOrigin = 100
)

// Generator issues tenant-scoped human readable ids.
type Generator interface {
	NextID(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) (string, error)
	Sync(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) (int64, error)
}

// ServiceParams configure the generator.
type ServiceParams struct {
	Repo     Repository
	Attempts int
	Backoff  time.Duration
}

type service struct {
	repo     Repository
	mu       *lock.KeyedMutex
	attempts int
	backoff  time.Duration
}

// NewService builds a generator backed by compare-and-swap counters.
func NewService(params ServiceParams) (Generator, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("sequence repository required")
	}
	attempts := params.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	backoff := params.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &service{
		repo:     params.Repo,
		mu:       lock.NewKeyedMutex(),
		attempts: attempts,
		backoff:  backoff,
	}, nil
}

// NextID returns prefix + zero padded(last+1). Concurrent callers in this process queue on a
// keyed mutex; callers in other processes race on the counter version and retry.
func (s *service) NextID(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) (string, error) {
	if !entity.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown entity type %q", entity))
	}
	if tenantID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tenant required")
	}

	unlock := s.mu.Lock(tenantID.String() + ":" + entity.String())
	defer unlock()

	var issued int64
	err := retry.Do(ctx, s.policy(), func(ctx context.Context) error {
		counter, err := s.loadOrSeed(ctx, tenantID, entity)
		if err != nil {
			return err
		}
		next := counter.LastValue + 1
		swapped, err := s.repo.CompareAndSwap(ctx, tenantID, entity, counter.Version, next)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance sequence counter")
		}
		if !swapped {
			return retry.RetryableError(conflictError(entity))
		}
		issued = next
		return nil
	})
	if err != nil {
		return "", err
	}
	return Format(entity, issued), nil
}

// Sync raises the counter to the highest suffix present in the entity table and returns it.
func (s *service) Sync(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) (int64, error) {
	unlock := s.mu.Lock(tenantID.String() + ":" + entity.String())
	defer unlock()

	var synced int64
	err := retry.Do(ctx, s.policy(), func(ctx context.Context) error {
		counter, err := s.loadOrSeed(ctx, tenantID, entity)
		if err != nil {
			return err
		}
		observed, err := s.scanMax(ctx, tenantID, entity)
		if err != nil {
			return err
		}
		if observed <= counter.LastValue {
			synced = counter.LastValue
			return nil
		}
		swapped, err := s.repo.CompareAndSwap(ctx, tenantID, entity, counter.Version, observed)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync sequence counter")
		}
		if !swapped {
			return retry.RetryableError(conflictError(entity))
		}
		synced = observed
		return nil
	})
	return synced, err
}

func (s *service) policy() retry.Backoff {
	return retry.WithMaxRetries(uint64(s.attempts-1), retry.NewExponential(s.backoff))
}

func (s *service) loadOrSeed(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) (*models.SequenceCounter, error) {
	counter, err := s.repo.FindCounter(ctx, tenantID, entity)
	if err == nil {
		return counter, nil
	}
	if !pkgdb.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sequence counter")
	}

	seed, err := s.scanMax(ctx, tenantID, entity)
	if err != nil {
		return nil, err
	}
	if entity == enums.EntityTypeEmployee && seed == 0 {
		seed = employeeOrigin
	}
	counter = &models.SequenceCounter{TenantID: tenantID, EntityType: entity, LastValue: seed}
	if err := s.repo.InsertCounter(ctx, counter); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, retry.RetryableError(conflictError(entity))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed sequence counter")
	}
	return counter, nil
}

func (s *service) scanMax(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) (int64, error) {
	ids, err := s.repo.ExistingHumanIDs(ctx, tenantID, entity)
	if err != nil {
		if errors.Is(err, errUnknownEntity) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown entity type")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan existing ids")
	}
	return MaxSuffix(entity, ids), nil
}

func conflictError(entity enums.EntityType) error {
	return pkgerrors.New(pkgerrors.CodeConcurrency, "sequence contention").
		WithDetails(map[string]any{"entity": entity.String()})
}

// Format renders a suffix with the entity prefix, padded to three digits.
func Format(entity enums.EntityType, value int64) string {
	return fmt.Sprintf("%s%0*d", entity.Prefix(), padWidth, value)
}

// ParseSuffix extracts the numeric suffix of humanID. Non-numeric suffixes report false.
func ParseSuffix(entity enums.EntityType, humanID string) (int64, bool) {
	prefix := entity.Prefix()
	if prefix == "" || !strings.HasPrefix(humanID, prefix) {
		return 0, false
	}
	digits := strings.TrimPrefix(humanID, prefix)
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// MaxSuffix returns the largest numeric suffix among ids, or 0 when none parse.
func MaxSuffix(entity enums.EntityType, ids []string) int64 {
	var max int64
	for _, id := range ids {
		if value, ok := ParseSuffix(entity, id); ok && value > max {
			max = value
		}
	}
	return max
}
