package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
)

type driverRepository interface {
	List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, int, error)
	FindByID(ctx context.Context, id string) (*models.Driver, error)
	ExistsByLicense(ctx context.Context, licenseNumber string, excludeID string) (bool, error)
	Create(ctx context.Context, driver *models.Driver) error
	Update(ctx context.Context, driver *models.Driver) error
	Deactivate(ctx context.Context, id string) error
}

// CreateDriverRequest represents payload for registering drivers.
type CreateDriverRequest struct {
	FullName      string  `json:"full_name" validate:"required,max=200"`
	Email         string  `json:"email" validate:"required,email"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	LicenseNumber string  `json:"license_number" validate:"required,max=50"`
}

// UpdateDriverRequest represents payload for updating drivers.
type UpdateDriverRequest struct {
	FullName      string  `json:"full_name" validate:"required,max=200"`
	Email         string  `json:"email" validate:"required,email"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	LicenseNumber string  `json:"license_number" validate:"required,max=50"`
	Active        *bool   `json:"active"`
}

// DriverService orchestrates driver registry operations.
type DriverService struct {
	repo      driverRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDriverService constructs a DriverService.
func NewDriverService(repo driverRepository, validate *validator.Validate, logger *zap.Logger) *DriverService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriverService{repo: repo, validator: validate, logger: logger}
}

// List returns drivers plus pagination data.
func (s *DriverService) List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, *models.Pagination, error) {
	drivers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drivers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return drivers, pagination, nil
}

// Get returns a driver by id.
func (s *DriverService) Get(ctx context.Context, id string) (*models.Driver, error) {
	driver, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "driver not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load driver")
	}
	return driver, nil
}

// Create registers a new driver.
func (s *DriverService) Create(ctx context.Context, req CreateDriverRequest) (*models.Driver, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	license := strings.ToUpper(strings.TrimSpace(req.LicenseNumber))
	if err := s.ensureUniqueLicense(ctx, license, ""); err != nil {
		return nil, err
	}

	driver := &models.Driver{
		FullName:      req.FullName,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         req.Phone,
		LicenseNumber: license,
		Active:        true,
	}
	if err := s.repo.Create(ctx, driver); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create driver")
	}
	return driver, nil
}

// Update modifies a driver's registry entry.
func (s *DriverService) Update(ctx context.Context, id string, req UpdateDriverRequest) (*models.Driver, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	driver, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	license := strings.ToUpper(strings.TrimSpace(req.LicenseNumber))
	if err := s.ensureUniqueLicense(ctx, license, id); err != nil {
		return nil, err
	}

	driver.FullName = req.FullName
	driver.Email = strings.ToLower(strings.TrimSpace(req.Email))
	driver.Phone = req.Phone
	driver.LicenseNumber = license
	if req.Active != nil {
		driver.Active = *req.Active
	}
	if err := s.repo.Update(ctx, driver); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update driver")
	}
	return driver, nil
}

// Deactivate soft-deletes a driver.
func (s *DriverService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate driver")
	}
	return nil
}

func (s *DriverService) ensureUniqueLicense(ctx context.Context, license, excludeID string) error {
	exists, err := s.repo.ExistsByLicense(ctx, license, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check license uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "license number already registered")
	}
	return nil
}
