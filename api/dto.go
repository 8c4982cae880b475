/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupled from the store records
  and engine types. Dates cross the wire as ISO YYYY-MM-DD strings; rupee
  amounts as whole numbers.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Done in handlers and the grants package; DTOs are pure data carriers.
*/
package api

import (
	"github.com/sahayog/grant-engine/disburse"
	"github.com/sahayog/grant-engine/grants"
)

// =============================================================================
// BENEFICIARIES / DONORS / PROJECTS / USERS
// =============================================================================

type BeneficiaryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Mobile    string `json:"mobile"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	District  string `json:"district,omitempty"`
	State     string `json:"state,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type SaveBeneficiaryRequest struct {
	Name     string `json:"name"`
	Mobile   string `json:"mobile"`
	Email    string `json:"email,omitempty"`
	Address  string `json:"address,omitempty"`
	District string `json:"district,omitempty"`
	State    string `json:"state,omitempty"`
}

type DonorDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type SaveDonorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type ProjectDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DonorID     string `json:"donor_id,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type SaveProjectRequest struct {
	Name        string `json:"name"`
	DonorID     string `json:"donor_id,omitempty"`
	Description string `json:"description,omitempty"`
}

type UserDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
}

type SaveUserRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
	Role   string `json:"role"`
}

// =============================================================================
// SCHEMES
// =============================================================================

type SchemeDTO struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	DonorID     string             `json:"donor_id,omitempty"`
	ProjectID   string             `json:"project_id,omitempty"`
	MaxAmount   int64              `json:"max_amount"`
	Template    *disburse.Template `json:"template,omitempty"`
	CreatedAt   string             `json:"created_at,omitempty"`
}

type SaveSchemeRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	DonorID     string             `json:"donor_id,omitempty"`
	ProjectID   string             `json:"project_id,omitempty"`
	MaxAmount   int64              `json:"max_amount"`
	Template    *disburse.Template `json:"template,omitempty"`
}

// MaterializedTemplateDTO is the "load scheme defaults" response: the
// scheme's template resolved against an anchor date.
type MaterializedTemplateDTO struct {
	SchemeID string           `json:"scheme_id"`
	Anchor   string           `json:"anchor"`
	Phases   []disburse.Phase `json:"phases"`
}

// =============================================================================
// APPLICATIONS
// =============================================================================

type ApplicationDTO struct {
	ID              string                   `json:"id"`
	BeneficiaryID   string                   `json:"beneficiary_id"`
	SchemeID        string                   `json:"scheme_id"`
	RequestedAmount int64                    `json:"requested_amount"`
	ApprovedAmount  int64                    `json:"approved_amount,omitempty"`
	Status          grants.ApplicationStatus `json:"status"`
	Comments        string                   `json:"comments,omitempty"`
	Timeline        []grants.PhasePayload    `json:"distribution_timeline,omitempty"`
	Recurring       *grants.RecurringPayload `json:"recurring_config,omitempty"`
	DecidedBy       string                   `json:"decided_by,omitempty"`
	DecidedAt       string                   `json:"decided_at,omitempty"`
	CreatedAt       string                   `json:"created_at,omitempty"`
}

type CreateApplicationRequest struct {
	BeneficiaryID   string `json:"beneficiary_id"`
	SchemeID        string `json:"scheme_id"`
	RequestedAmount int64  `json:"requested_amount"`
}

// ApproveApplicationRequest is the approval submission body. Phase amounts
// are server-derived; clients submit percentages and dates only.
type ApproveApplicationRequest struct {
	ApprovedAmount     int64                     `json:"approvedAmount"`
	Comments           string                    `json:"comments"`
	Timeline           []PhaseInput              `json:"distributionTimeline"`
	Recurring          *disburse.RecurringConfig `json:"recurringConfig,omitempty"`
	ForwardToCommittee bool                      `json:"forwardToCommittee,omitempty"`
	ApprovedBy         string                    `json:"approved_by,omitempty"`
}

type PhaseInput struct {
	Description string `json:"description"`
	Percentage  int    `json:"percentage"`
	DueDate     string `json:"dueDate"`
	Notes       string `json:"notes,omitempty"`
}

type RejectApplicationRequest struct {
	Remarks    string `json:"remarks"`
	RejectedBy string `json:"rejected_by,omitempty"`
}

// ScheduleDTO is the recurring-schedule preview for an approved application.
type ScheduleDTO struct {
	ApplicationID string                  `json:"application_id"`
	Payments      []disburse.CyclePayment `json:"payments"`
	TotalAmount   int64                   `json:"total_amount"`
}

// =============================================================================
// MASTER DATA / DISBURSEMENTS
// =============================================================================

type MasterConfigDTO struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	ConfigJSON string `json:"config"`
	Version    int    `json:"version"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

type SaveMasterConfigRequest struct {
	ID         string `json:"id,omitempty"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	ConfigJSON string `json:"config"`
}

type DisbursementDTO struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	PhaseID       int    `json:"phase_id"`
	Description   string `json:"description"`
	Percentage    int    `json:"percentage"`
	Amount        int64  `json:"amount"`
	DueDate       string `json:"due_date"`
	Status        string `json:"status"`
	PaidAt        string `json:"paid_at,omitempty"`
}
