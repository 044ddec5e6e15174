package models

import "time"

// DocumentSubject identifies which party a compliance document belongs to.
type DocumentSubject string

const (
	DocumentSubjectDriver  DocumentSubject = "DRIVER"
	DocumentSubjectPartner DocumentSubject = "PARTNER"
)

// DocumentType enumerates the accepted KYC document categories.
type DocumentType string

const (
	DocumentTypeLicense   DocumentType = "license"
	DocumentTypeIDCard    DocumentType = "id_card"
	DocumentTypeOwnership DocumentType = "ownership"
	DocumentTypeInsurance DocumentType = "insurance"
)

// DocumentStatus tracks the review lifecycle of a KYC document.
type DocumentStatus string

const (
	DocumentStatusPendingReview DocumentStatus = "pending_review"
	DocumentStatusApproved      DocumentStatus = "approved"
	DocumentStatusRejected      DocumentStatus = "rejected"
	DocumentStatusExpired       DocumentStatus = "expired"
)

// Document represents one KYC compliance document metadata row.
type Document struct {
	ID           string          `db:"id" json:"id"`
	SubjectType  DocumentSubject `db:"subject_type" json:"subject_type"`
	SubjectID    string          `db:"subject_id" json:"subject_id"`
	Type         DocumentType    `db:"type" json:"type"`
	Status       DocumentStatus  `db:"status" json:"status"`
	FilePath     string          `db:"file_path" json:"file_path"`
	MimeType     string          `db:"mime_type" json:"mime_type"`
	SizeBytes    int64           `db:"size_bytes" json:"size_bytes"`
	ExpiresAt    *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	ReviewedBy   *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote   string          `db:"review_note" json:"review_note"`
	UploadedBy   string          `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt   time.Time       `db:"uploaded_at" json:"uploaded_at"`
	DeletedAt    *time.Time      `db:"deleted_at" json:"deleted_at,omitempty"`
}

// DocumentFilter narrows listing queries by metadata fields.
type DocumentFilter struct {
	SubjectType    DocumentSubject
	SubjectID      string
	Type           DocumentType
	Status         DocumentStatus
	IncludeDeleted bool
	Limit          int
	Offset         int
}
