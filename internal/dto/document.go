package dto

import "github.com/fleetdesk/fleetdesk-api/internal/models"

// UploadDocumentRequest carries the multipart metadata for a KYC upload.
type UploadDocumentRequest struct {
	SubjectType string `form:"subjectType" validate:"required,oneof=DRIVER PARTNER"`
	SubjectID   string `form:"subjectId" validate:"required"`
	Type        string `form:"type" validate:"required,oneof=license id_card ownership insurance"`
	ExpiresAt   string `form:"expiresAt"`
}

// ReviewDocumentRequest records an approve/reject decision.
type ReviewDocumentRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	SubjectType string `form:"subjectType"`
	SubjectID   string `form:"subjectId"`
	Type        string `form:"type"`
	Status      string `form:"status"`
}

// DocumentDownloadResponse pairs metadata with a signed download URL.
type DocumentDownloadResponse struct {
	models.Document
	DownloadURL string `json:"download_url"`
}
