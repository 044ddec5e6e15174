package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/internal/service"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
	"github.com/fleetdesk/fleetdesk-api/pkg/response"
)

// PartnerHandler exposes partner endpoints.
type PartnerHandler struct {
	partners *service.PartnerService
}

// NewPartnerHandler constructs PartnerHandler.
func NewPartnerHandler(partners *service.PartnerService) *PartnerHandler {
	return &PartnerHandler{partners: partners}
}

// List godoc
// @Summary List partners
// @Tags Partners
// @Produce json
// @Param search query string false "Search by company name"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /partners [get]
func (h *PartnerHandler) List(c *gin.Context) {
	var filter models.PartnerFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if active := c.Query("active"); active != "" {
		if active == "true" {
			v := true
			filter.Active = &v
		} else if active == "false" {
			v := false
			filter.Active = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	partners, pagination, err := h.partners.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, partners, pagination)
}

// Get godoc
// @Summary Get partner detail
// @Tags Partners
// @Produce json
// @Param id path string true "Partner ID"
// @Success 200 {object} response.Envelope
// @Router /partners/{id} [get]
func (h *PartnerHandler) Get(c *gin.Context) {
	partner, err := h.partners.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, partner, nil)
}

// Cars godoc
// @Summary List a partner's fleet
// @Tags Partners
// @Produce json
// @Param id path string true "Partner ID"
// @Success 200 {object} response.Envelope
// @Router /partners/{id}/cars [get]
func (h *PartnerHandler) Cars(c *gin.Context) {
	cars, err := h.partners.Cars(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cars, nil)
}

// Create godoc
// @Summary Register a partner
// @Tags Partners
// @Accept json
// @Produce json
// @Param payload body service.CreatePartnerRequest true "Partner payload"
// @Success 201 {object} response.Envelope
// @Router /partners [post]
func (h *PartnerHandler) Create(c *gin.Context) {
	var req service.CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	partner, err := h.partners.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, partner)
}

// Update godoc
// @Summary Update partner
// @Tags Partners
// @Accept json
// @Produce json
// @Param id path string true "Partner ID"
// @Param payload body service.UpdatePartnerRequest true "Partner payload"
// @Success 200 {object} response.Envelope
// @Router /partners/{id} [put]
func (h *PartnerHandler) Update(c *gin.Context) {
	var req service.UpdatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	partner, err := h.partners.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, partner, nil)
}

// Deactivate godoc
// @Summary Deactivate partner
// @Tags Partners
// @Produce json
// @Param id path string true "Partner ID"
// @Success 204
// @Router /partners/{id} [delete]
func (h *PartnerHandler) Deactivate(c *gin.Context) {
	if err := h.partners.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
