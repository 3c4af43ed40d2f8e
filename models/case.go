package models

import (
	"time"

	"github.com/google/uuid"
)

// CaseStatus represents the lifecycle status of a sanction case
type CaseStatus string

const (
	CaseStatusUploaded      CaseStatus = "uploaded"
	CaseStatusAnalyzed      CaseStatus = "analyzed"
	CaseStatusReadyToSubmit CaseStatus = "ready_to_submit"
	CaseStatusGenerated     CaseStatus = "generated"
	CaseStatusSubmitted     CaseStatus = "submitted"
	CaseStatusClosed        CaseStatus = "closed"
	CaseStatusArchived      CaseStatus = "archived"
)

// PaymentStatus represents the billing state of a case
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Case represents a sanction file (expediente) owned by one client
type Case struct {
	ID                uuid.UUID     `json:"id"`
	Status            CaseStatus    `json:"status"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	ProductCode       *string       `json:"product_code,omitempty"`
	ContactEmail      *string       `json:"contact_email,omitempty"`
	PartnerCode       *string       `json:"partner_code,omitempty"`
	Authorized        bool          `json:"authorized"`
	TestMode          bool          `json:"test_mode"`
	OverrideDeadlines bool          `json:"override_deadlines"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
