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

// CarHandler exposes fleet endpoints.
type CarHandler struct {
	cars *service.CarService
}

// NewCarHandler constructs CarHandler.
func NewCarHandler(cars *service.CarService) *CarHandler {
	return &CarHandler{cars: cars}
}

// List godoc
// @Summary List cars
// @Tags Cars
// @Produce json
// @Param search query string false "Search by plate or model"
// @Param partnerId query string false "Filter by partner"
// @Param available query bool false "Filter by availability"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cars [get]
func (h *CarHandler) List(c *gin.Context) {
	var filter models.CarFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.PartnerID = c.Query("partnerId")
	if available := c.Query("available"); available != "" {
		if available == "true" {
			v := true
			filter.Available = &v
		} else if available == "false" {
			v := false
			filter.Available = &v
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

	cars, pagination, err := h.cars.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cars, pagination)
}

// Get godoc
// @Summary Get car detail
// @Tags Cars
// @Produce json
// @Param id path string true "Car ID"
// @Success 200 {object} response.Envelope
// @Router /cars/{id} [get]
func (h *CarHandler) Get(c *gin.Context) {
	car, err := h.cars.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, car, nil)
}

// Create godoc
// @Summary Register a car
// @Tags Cars
// @Accept json
// @Produce json
// @Param payload body service.CreateCarRequest true "Car payload"
// @Success 201 {object} response.Envelope
// @Router /cars [post]
func (h *CarHandler) Create(c *gin.Context) {
	var req service.CreateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	car, err := h.cars.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, car)
}

// Update godoc
// @Summary Update car
// @Tags Cars
// @Accept json
// @Produce json
// @Param id path string true "Car ID"
// @Param payload body service.UpdateCarRequest true "Car payload"
// @Success 200 {object} response.Envelope
// @Router /cars/{id} [put]
func (h *CarHandler) Update(c *gin.Context) {
	var req service.UpdateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	car, err := h.cars.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, car, nil)
}

// Delete godoc
// @Summary Remove car from fleet
// @Tags Cars
// @Produce json
// @Param id path string true "Car ID"
// @Success 204
// @Router /cars/{id} [delete]
func (h *CarHandler) Delete(c *gin.Context) {
	if err := h.cars.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
