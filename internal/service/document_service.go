package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	SetReview(ctx context.Context, id string, status models.DocumentStatus, reviewerID, note string, reviewedAt time.Time) error
	MarkExpired(ctx context.Context, cutoff time.Time) ([]string, error)
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

type documentFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type documentURLSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

// DocumentUpload carries upload metadata and the stream reader.
type DocumentUpload struct {
	SubjectType models.DocumentSubject
	SubjectID   string
	Type        models.DocumentType
	ExpiresAt   *time.Time
	Filename    string
	Size        int64
	MimeType    string
	Content     io.ReadSeeker
}

// DocumentDownload bundles file reader metadata for streaming.
type DocumentDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
	ExpiresAt time.Time
}

// DocumentServiceConfig holds validation parameters for uploads.
type DocumentServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// DocumentService manages KYC document metadata, storage IO, and the review
// lifecycle.
type DocumentService struct {
	repo    documentStore
	storage documentFileStorage
	signer  documentURLSigner
	audit   auditLogger
	logger  *zap.Logger
	cfg     DocumentServiceConfig
	mimeSet map[string]struct{}
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(repo documentStore, storage documentFileStorage, signer documentURLSigner, audit auditLogger, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &DocumentService{
		repo:    repo,
		storage: storage,
		signer:  signer,
		audit:   audit,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
	}
}

// Upload persists metadata and the physical file for a new KYC document.
func (s *DocumentService) Upload(ctx context.Context, upload DocumentUpload, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validateUploadMeta(upload); err != nil {
		return nil, err
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := s.detectMime(upload)
	if err != nil {
		return nil, err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mime type not allowed")
	}

	filename := s.generateFilename(upload, mimeType)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	path, err := s.storage.SaveStream(filename, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist document file")
	}

	doc := &models.Document{
		SubjectType: upload.SubjectType,
		SubjectID:   upload.SubjectID,
		Type:        upload.Type,
		Status:      models.DocumentStatusPendingReview,
		FilePath:    path,
		MimeType:    mimeType,
		SizeBytes:   upload.Size,
		ExpiresAt:   upload.ExpiresAt,
		UploadedBy:  actor.UserID,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = s.storage.Delete(path)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document metadata")
	}
	return doc, nil
}

// List returns document metadata matching the filter.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	docs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// Get returns document metadata by id.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.DeletedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return doc, nil
}

// Review records an approval or rejection decision on a pending document.
func (s *DocumentService) Review(ctx context.Context, id string, approve bool, note string, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.DocumentStatusPendingReview {
		return nil, appErrors.Clone(appErrors.ErrConflict, "document is not awaiting review")
	}
	if !approve && strings.TrimSpace(note) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection requires a note")
	}

	status := models.DocumentStatusApproved
	if !approve {
		status = models.DocumentStatusRejected
	}
	now := time.Now().UTC()
	if err := s.repo.SetReview(ctx, id, status, actor.UserID, note, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record review")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDocumentReview,
		Resource:   "document",
		ResourceID: &id,
		NewValues:  []byte(fmt.Sprintf(`{"status":"%s"}`, status)),
	})

	doc.Status = status
	doc.ReviewedBy = &actor.UserID
	doc.ReviewedAt = &now
	doc.ReviewNote = note
	return doc, nil
}

// GetDownloadURL generates a signed URL for downloading the document file.
func (s *DocumentService) GetDownloadURL(ctx context.Context, id string) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	token, _, err := s.signer.Generate(doc.ID, doc.FilePath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return fmt.Sprintf("%s/documents/%s/download?token=%s", base, doc.ID, token), nil
}

// Download validates the token and opens the document file for streaming.
func (s *DocumentService) Download(ctx context.Context, id, token string) (*DocumentDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	docID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if docID != doc.ID || relPath != doc.FilePath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document metadata")
	}
	return &DocumentDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		MimeType:  doc.MimeType,
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

// Delete marks a document as deleted (soft delete).
func (s *DocumentService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if err := s.repo.SoftDelete(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	return nil
}

// ExpireOverdue flips documents past their validity date to expired. It runs
// from the scheduled sweep and returns how many documents were flipped.
func (s *DocumentService) ExpireOverdue(ctx context.Context) (int, error) {
	ids, err := s.repo.MarkExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire documents")
	}
	if len(ids) > 0 {
		s.logger.Info("documents expired by sweep", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

func (s *DocumentService) validateUploadMeta(upload DocumentUpload) error {
	switch upload.SubjectType {
	case models.DocumentSubjectDriver, models.DocumentSubjectPartner:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "invalid subject type")
	}
	if strings.TrimSpace(upload.SubjectID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "subject id is required")
	}
	switch upload.Type {
	case models.DocumentTypeLicense, models.DocumentTypeIDCard, models.DocumentTypeOwnership, models.DocumentTypeInsurance:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "invalid document type")
	}
	if upload.ExpiresAt != nil && upload.ExpiresAt.Before(time.Now()) {
		return appErrors.Clone(appErrors.ErrValidation, "expiry date is already in the past")
	}
	return nil
}

func (s *DocumentService) detectMime(upload DocumentUpload) (string, error) {
	if upload.Content == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file reader missing")
	}
	if upload.MimeType != "" {
		return upload.MimeType, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return http.DetectContentType(header[:n]), nil
}

func (s *DocumentService) generateFilename(upload DocumentUpload, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext == "" {
		ext = mimeExtension(mimeType)
	}
	if ext == "" {
		ext = ".bin"
	}
	subject := sanitize(string(upload.SubjectType))
	return fmt.Sprintf("%s_%s_%s_%d_%s%s", subject, sanitize(upload.SubjectID), sanitize(string(upload.Type)), time.Now().Unix(), randomSuffix(), ext)
}

func sanitize(raw string) string {
	raw = strings.ToLower(raw)
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func mimeExtension(mime string) string {
	switch strings.ToLower(mime) {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ""
	}
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func (s *DocumentService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "document-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create document audit", zap.Error(err))
	}
}
