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

type partnerRepository interface {
	List(ctx context.Context, filter models.PartnerFilter) ([]models.Partner, int, error)
	FindByID(ctx context.Context, id string) (*models.Partner, error)
	ListCars(ctx context.Context, partnerID string) ([]models.Car, error)
	Create(ctx context.Context, partner *models.Partner) error
	Update(ctx context.Context, partner *models.Partner) error
	Deactivate(ctx context.Context, id string) error
}

// CreatePartnerRequest represents payload for onboarding partners.
type CreatePartnerRequest struct {
	CompanyName string  `json:"company_name" validate:"required,max=200"`
	ContactName string  `json:"contact_name" validate:"required,max=200"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=50"`
	PayoutShare float64 `json:"payout_share" validate:"gte=0,lte=1"`
}

// UpdatePartnerRequest represents payload for updating partners.
type UpdatePartnerRequest struct {
	CompanyName string  `json:"company_name" validate:"required,max=200"`
	ContactName string  `json:"contact_name" validate:"required,max=200"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=50"`
	PayoutShare float64 `json:"payout_share" validate:"gte=0,lte=1"`
	Active      *bool   `json:"active"`
}

// PartnerService orchestrates fleet partner operations.
type PartnerService struct {
	repo      partnerRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPartnerService constructs a PartnerService.
func NewPartnerService(repo partnerRepository, validate *validator.Validate, logger *zap.Logger) *PartnerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartnerService{repo: repo, validator: validate, logger: logger}
}

// List returns partners plus pagination data.
func (s *PartnerService) List(ctx context.Context, filter models.PartnerFilter) ([]models.Partner, *models.Pagination, error) {
	partners, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list partners")
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
	return partners, pagination, nil
}

// Get returns a partner by id.
func (s *PartnerService) Get(ctx context.Context, id string) (*models.Partner, error) {
	partner, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "partner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load partner")
	}
	return partner, nil
}

// Cars lists the fleet units owned by a partner.
func (s *PartnerService) Cars(ctx context.Context, id string) ([]models.Car, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	cars, err := s.repo.ListCars(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list partner cars")
	}
	return cars, nil
}

// Create onboards a new partner.
func (s *PartnerService) Create(ctx context.Context, req CreatePartnerRequest) (*models.Partner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	partner := &models.Partner{
		CompanyName: req.CompanyName,
		ContactName: req.ContactName,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       req.Phone,
		PayoutShare: req.PayoutShare,
		Active:      true,
	}
	if err := s.repo.Create(ctx, partner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create partner")
	}
	return partner, nil
}

// Update modifies a partner's record.
func (s *PartnerService) Update(ctx context.Context, id string, req UpdatePartnerRequest) (*models.Partner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	partner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	partner.CompanyName = req.CompanyName
	partner.ContactName = req.ContactName
	partner.Email = strings.ToLower(strings.TrimSpace(req.Email))
	partner.Phone = req.Phone
	partner.PayoutShare = req.PayoutShare
	if req.Active != nil {
		partner.Active = *req.Active
	}
	if err := s.repo.Update(ctx, partner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update partner")
	}
	return partner, nil
}

// Deactivate soft-deletes a partner.
func (s *PartnerService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate partner")
	}
	return nil
}
