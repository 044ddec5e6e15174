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

type carRepository interface {
	List(ctx context.Context, filter models.CarFilter) ([]models.Car, int, error)
	FindByID(ctx context.Context, id string) (*models.Car, error)
	ExistsByPlate(ctx context.Context, plate string, excludeID string) (bool, error)
	Create(ctx context.Context, car *models.Car) error
	Update(ctx context.Context, car *models.Car) error
	Delete(ctx context.Context, id string) error
}

// CreateCarRequest represents payload for registering cars.
type CreateCarRequest struct {
	PartnerID *string `json:"partner_id"`
	Plate     string  `json:"plate" validate:"required,max=20"`
	Make      string  `json:"make" validate:"required,max=100"`
	Model     string  `json:"model" validate:"required,max=100"`
	Year      int     `json:"year" validate:"required,gte=1990"`
	DailyRate float64 `json:"daily_rate" validate:"required,gt=0"`
}

// UpdateCarRequest represents payload for updating cars.
type UpdateCarRequest struct {
	PartnerID *string `json:"partner_id"`
	Plate     string  `json:"plate" validate:"required,max=20"`
	Make      string  `json:"make" validate:"required,max=100"`
	Model     string  `json:"model" validate:"required,max=100"`
	Year      int     `json:"year" validate:"required,gte=1990"`
	DailyRate float64 `json:"daily_rate" validate:"required,gt=0"`
	Available *bool   `json:"available"`
}

// CarService orchestrates fleet operations.
type CarService struct {
	repo      carRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCarService constructs a CarService.
func NewCarService(repo carRepository, validate *validator.Validate, logger *zap.Logger) *CarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CarService{repo: repo, validator: validate, logger: logger}
}

// List returns cars plus pagination data.
func (s *CarService) List(ctx context.Context, filter models.CarFilter) ([]models.Car, *models.Pagination, error) {
	cars, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cars")
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
	return cars, pagination, nil
}

// Get returns a car by id.
func (s *CarService) Get(ctx context.Context, id string) (*models.Car, error) {
	car, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "car not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load car")
	}
	return car, nil
}

// Create registers a new car.
func (s *CarService) Create(ctx context.Context, req CreateCarRequest) (*models.Car, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	plate := strings.ToUpper(strings.TrimSpace(req.Plate))
	if err := s.ensureUniquePlate(ctx, plate, ""); err != nil {
		return nil, err
	}

	car := &models.Car{
		PartnerID: req.PartnerID,
		Plate:     plate,
		Make:      req.Make,
		Model:     req.Model,
		Year:      req.Year,
		DailyRate: req.DailyRate,
		Available: true,
	}
	if err := s.repo.Create(ctx, car); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create car")
	}
	return car, nil
}

// Update modifies a car's registration details.
func (s *CarService) Update(ctx context.Context, id string, req UpdateCarRequest) (*models.Car, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	car, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	plate := strings.ToUpper(strings.TrimSpace(req.Plate))
	if err := s.ensureUniquePlate(ctx, plate, id); err != nil {
		return nil, err
	}

	car.PartnerID = req.PartnerID
	car.Plate = plate
	car.Make = req.Make
	car.Model = req.Model
	car.Year = req.Year
	car.DailyRate = req.DailyRate
	if req.Available != nil {
		car.Available = *req.Available
	}
	if err := s.repo.Update(ctx, car); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update car")
	}
	return car, nil
}

// Delete removes a car from the fleet.
func (s *CarService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete car")
	}
	return nil
}

func (s *CarService) ensureUniquePlate(ctx context.Context, plate, excludeID string) error {
	exists, err := s.repo.ExistsByPlate(ctx, plate, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check plate uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "plate already registered")
	}
	return nil
}
