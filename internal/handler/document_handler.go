package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleetdesk-api/internal/dto"
	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/internal/service"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
	"github.com/fleetdesk/fleetdesk-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, upload service.DocumentUpload, actor *models.JWTClaims) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Review(ctx context.Context, id string, approve bool, note string, actor *models.JWTClaims) (*models.Document, error)
	GetDownloadURL(ctx context.Context, id string) (string, error)
	Download(ctx context.Context, id, token string) (*service.DocumentDownload, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// DocumentHandler manages KYC document endpoints.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service documentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// Upload godoc
// @Summary Upload a compliance document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param subjectType formData string true "DRIVER or PARTNER"
// @Param subjectId formData string true "Subject ID"
// @Param type formData string true "Document type"
// @Param expiresAt formData string false "Expiry (RFC3339)"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	upload := service.DocumentUpload{
		SubjectType: models.DocumentSubject(strings.ToUpper(req.SubjectType)),
		SubjectID:   req.SubjectID,
		Type:        models.DocumentType(req.Type),
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		Content:     reader,
	}
	if req.ExpiresAt != "" {
		expires, parseErr := time.Parse(time.RFC3339, req.ExpiresAt)
		if parseErr != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "expiresAt must be RFC3339"))
			return
		}
		upload.ExpiresAt = &expires
	}

	doc, err := h.service.Upload(c.Request.Context(), upload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, doc, nil)
}

// List godoc
// @Summary List compliance documents
// @Tags Documents
// @Produce json
// @Param subjectType query string false "DRIVER or PARTNER"
// @Param subjectId query string false "Subject ID"
// @Param type query string false "Document type"
// @Param status query string false "Review status"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter := models.DocumentFilter{
		SubjectID: strings.TrimSpace(c.Query("subjectId")),
		Type:      models.DocumentType(c.Query("type")),
		Status:    models.DocumentStatus(c.Query("status")),
	}
	if subject := c.Query("subjectType"); subject != "" {
		filter.SubjectType = models.DocumentSubject(strings.ToUpper(subject))
	}
	docs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Get godoc
// @Summary Get document metadata with a signed download URL
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	downloadURL, err := h.service.GetDownloadURL(c.Request.Context(), doc.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DocumentDownloadResponse{
		Document:    *doc,
		DownloadURL: downloadURL,
	}, nil)
}

// Review godoc
// @Summary Approve or reject a pending document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.ReviewDocumentRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/review [post]
func (h *DocumentHandler) Review(c *gin.Context) {
	var req dto.ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, err := h.service.Review(c.Request.Context(), c.Param("id"), req.Approve, req.Note, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Download godoc
// @Summary Download a document via signed token
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Download(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck

	c.Header("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.MimeType, result.File, nil)
}

// Delete godoc
// @Summary Soft-delete a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
