package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/lock"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/principal"
	pkgredis "github.com/nightshift/inventory-backend/pkg/redis"
)

const defaultLockTTL = 10 * time.Second

// Service manages performance reviews. Only admins and the reviewed employee's manager may
// write a review; every write refreshes the employee's performance aggregate in the same
// transaction.
type Service interface {
	Create(ctx context.Context, p principal.Principal, input CreateInput) (*ReviewDTO, error)
	Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*ReviewDTO, error)
	Received(ctx context.Context, p principal.Principal, employeeRef string) ([]ReviewDTO, error)
	Given(ctx context.Context, p principal.Principal, reviewerRef string) ([]ReviewDTO, error)
	Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*ReviewDTO, error)
	Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires review dependencies.
type ServiceParams struct {
	Repo    Repository
	DB      txRunner
	Locker  lock.Locker
	Logger  *logger.Logger
	LockTTL time.Duration
}

type service struct {
	repo    Repository
	db      txRunner
	locker  lock.Locker
	logg    *logger.Logger
	lockTTL time.Duration
	now     func() time.Time
}

// NewService builds the review service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("review repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &service{
		repo:    params.Repo,
		db:      params.DB,
		locker:  params.Locker,
		logg:    params.Logger,
		lockTTL: ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, p principal.Principal, input CreateInput) (*ReviewDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(input.EmployeeRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee id is required")
	}
	reviewer, err := s.reviewer(ctx, p)
	if err != nil {
		return nil, err
	}
	employee, err := s.repo.FindEmployeeByHumanID(ctx, p.TenantID, ref)
	if err != nil {
		return nil, employeeLookupError(err, ref)
	}
	if employee.ID == reviewer.ID {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "employees cannot review themselves")
	}
	if err := authorize(p, reviewer, employee); err != nil {
		return nil, err
	}

	reviewerID := reviewer.ID
	review := &models.PerformanceReview{
		OrgID:           p.TenantID,
		EmployeeID:      employee.ID,
		EmployeeHumanID: employee.HumanID,
		ReviewerID:      &reviewerID,
		ReviewerHumanID: reviewer.HumanID,
		ReviewerName:    reviewer.Name,
		Rating:          input.Rating,
		Comments:        trimmedPtr(input.Comments),
		ReviewDate:      s.now(),
	}
	err = s.withEmployeeLock(ctx, p, employee.ID, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Create(ctx, review); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
			}
			return refresh(ctx, repo, p.TenantID, employee.ID)
		})
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(review)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*ReviewDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	review, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, id)
	}
	dto := toDTO(review)
	return &dto, nil
}

// Received lists the reviews an existing employee has been given, newest first.
func (s *service) Received(ctx context.Context, p principal.Principal, employeeRef string) ([]ReviewDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(employeeRef)
	if _, err := s.repo.FindEmployeeByHumanID(ctx, p.TenantID, ref); err != nil {
		return nil, employeeLookupError(err, ref)
	}
	rows, err := s.repo.ListByEmployee(ctx, p.TenantID, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list received reviews")
	}
	return toDTOs(rows), nil
}

// Given lists the reviews written under a reviewer id. Reviews outlive their reviewer, so the
// reviewer does not have to exist any more.
func (s *service) Given(ctx context.Context, p principal.Principal, reviewerRef string) ([]ReviewDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(reviewerRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer id is required")
	}
	rows, err := s.repo.ListByReviewer(ctx, p.TenantID, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list given reviews")
	}
	return toDTOs(rows), nil
}

// Update is authorized against the employee the stored review belongs to.
func (s *service) Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*ReviewDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if input.Rating != nil {
		if err := validateRating(*input.Rating); err != nil {
			return nil, err
		}
		updates["rating"] = *input.Rating
	}
	if input.Comments != nil {
		updates["comments"] = trimmedPtr(input.Comments)
	}
	review, err := s.authorizedReview(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		dto := toDTO(review)
		return &dto, nil
	}
	err = s.withEmployeeLock(ctx, p, review.EmployeeID, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Update(ctx, p.TenantID, id, updates); err != nil {
				return lookupError(err, id)
			}
			return refresh(ctx, repo, p.TenantID, review.EmployeeID)
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, p, id)
}

func (s *service) Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	if err := p.Validate(); err != nil {
		return err
	}
	review, err := s.authorizedReview(ctx, p, id)
	if err != nil {
		return err
	}
	return s.withEmployeeLock(ctx, p, review.EmployeeID, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Delete(ctx, p.TenantID, id); err != nil {
				return lookupError(err, id)
			}
			return refresh(ctx, repo, p.TenantID, review.EmployeeID)
		})
	})
}

func (s *service) authorizedReview(ctx context.Context, p principal.Principal, id uuid.UUID) (*models.PerformanceReview, error) {
	review, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, id)
	}
	reviewer, err := s.reviewer(ctx, p)
	if err != nil {
		return nil, err
	}
	employee, err := s.repo.FindEmployee(ctx, p.TenantID, review.EmployeeID)
	if err != nil {
		return nil, employeeLookupError(err, review.EmployeeHumanID)
	}
	if err := authorize(p, reviewer, employee); err != nil {
		return nil, err
	}
	return review, nil
}

// reviewer loads the calling employee; reviews always carry a real reviewer.
func (s *service) reviewer(ctx context.Context, p principal.Principal) (*models.Employee, error) {
	reviewer, err := s.repo.FindEmployee(ctx, p.TenantID, p.ActorID)
	if err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller is not an employee of this organization")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reviewer")
	}
	return reviewer, nil
}

func (s *service) withEmployeeLock(ctx context.Context, p principal.Principal, employeeID uuid.UUID, fn func(ctx context.Context) error) error {
	key := pkgredis.LockKey("review", p.TenantID.String(), employeeID.String())
	err := lock.WithLock(ctx, s.locker, key, s.lockTTL, fn)
	if errors.Is(err, lock.ErrNotObtained) {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "employee reviews are being updated").
			WithDetails(map[string]any{"employee_id": employeeID.String()})
	}
	return err
}

// authorize admits admins and the employee's direct manager.
func authorize(p principal.Principal, reviewer, employee *models.Employee) error {
	if p.IsAdmin() {
		return nil
	}
	if employee.ManagerID != nil && *employee.ManagerID == reviewer.HumanID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only admins and the employee's manager can review them").
		WithDetails(map[string]any{"employee_id": employee.HumanID})
}

func refresh(ctx context.Context, repo Repository, tenantID, employeeID uuid.UUID) error {
	if err := repo.RefreshEmployee(ctx, tenantID, employeeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh employee performance")
	}
	return nil
}

func validateRating(rating int) error {
	if rating < models.MinReviewRating || rating > models.MaxReviewRating {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"rating": rating})
	}
	return nil
}

func lookupError(err error, id uuid.UUID) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found").
			WithDetails(map[string]any{"review_id": id.String()})
	}
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load review")
}

func employeeLookupError(err error, ref string) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found").
			WithDetails(map[string]any{"employee_id": ref})
	}
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load employee")
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
