/*
handlers.go - HTTP API handlers for the grant administration console

PURPOSE:
  Exposes the grant workflow via REST. Handles HTTP request/response, JSON
  serialization, and delegates decision logic to the grants and disburse
  packages.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validation failures never reach the store)
  3. Call domain logic (gates, allocator, expansion)
  4. Persist and serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation failures, malformed input
  - 404: Record not found
  - 409: Conflict (application not awaiting a decision)
  - 500: Internal errors
  A failed submission leaves persisted state untouched; the client retries.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/sahayog/grant-engine/disburse"
	"github.com/sahayog/grant-engine/factory"
	"github.com/sahayog/grant-engine/grants"
	"github.com/sahayog/grant-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Log   *logrus.Logger
}

// NewHandler creates a new handler with the given store and logger.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{Store: store, Log: log}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to a status code: client errors to
// 400, everything else to 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	var fieldErr *grants.FieldError
	switch {
	case disburse.IsClientError(err),
		errors.Is(err, grants.ErrMissingComments),
		errors.Is(err, grants.ErrMissingTimeline),
		errors.Is(err, grants.ErrInvalidAmount),
		errors.Is(err, factory.ErrMalformedTemplate),
		errors.As(err, &fieldErr):
		status = http.StatusBadRequest
	case errors.Is(err, grants.ErrNotDecidable):
		status = http.StatusConflict
	}
	writeError(w, status, message, err)
}

// =============================================================================
// APPLICATION HANDLERS
// =============================================================================

// ListApplications returns applications, optionally filtered by ?status=.
// GET /api/applications
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Store.ListApplications(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list applications", err)
		return
	}

	dtos := make([]ApplicationDTO, 0, len(apps))
	for _, a := range apps {
		dtos = append(dtos, h.applicationDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateApplication registers a new pending application.
// POST /api/applications
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := grants.RequireFields(map[string]string{
		"beneficiary_id": req.BeneficiaryID,
		"scheme_id":      req.SchemeID,
	}, "beneficiary_id", "scheme_id"); err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}
	if req.RequestedAmount <= 0 {
		writeError(w, http.StatusBadRequest, "requested_amount must be positive", nil)
		return
	}

	ben, err := h.Store.GetBeneficiary(ctx, req.BeneficiaryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load beneficiary", err)
		return
	}
	if ben == nil {
		writeError(w, http.StatusNotFound, "Beneficiary not found", nil)
		return
	}

	scheme, err := h.Store.GetScheme(ctx, req.SchemeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scheme", err)
		return
	}
	if scheme == nil {
		writeError(w, http.StatusNotFound, "Scheme not found", nil)
		return
	}
	if scheme.MaxAmount > 0 && req.RequestedAmount > scheme.MaxAmount {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("requested_amount exceeds scheme maximum of %d", scheme.MaxAmount), nil)
		return
	}

	app, err := h.Store.SaveApplication(ctx, sqlite.Application{
		BeneficiaryID:   req.BeneficiaryID,
		SchemeID:        req.SchemeID,
		RequestedAmount: req.RequestedAmount,
		Status:          string(grants.StatusPending),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create application", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.applicationDTO(app))
}

// GetApplication returns a single application.
// GET /api/applications/{id}
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.Store.GetApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get application", err)
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "Application not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.applicationDTO(*app))
}

// ApproveApplication records a direct approval: the timeline must cover
// exactly 100% of the approved amount.
// POST /api/applications/{id}/approve
func (h *Handler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

// ForwardApplication forwards to committee: the timeline may be partial
// (sum <= 100), the committee completes the remainder.
// POST /api/applications/{id}/forward
func (h *Handler) ForwardApplication(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, forward bool) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req ApproveApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	app, err := h.Store.GetApplication(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get application", err)
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "Application not found", nil)
		return
	}
	if !grants.Decidable(grants.ApplicationStatus(app.Status)) {
		writeDomainError(w, "Application already decided", grants.ErrNotDecidable)
		return
	}

	timeline, err := timelineFromInput(req.Timeline)
	if err != nil {
		writeDomainError(w, "Invalid distribution timeline", err)
		return
	}

	decision := grants.Decision{
		ApprovedAmount:     req.ApprovedAmount,
		Comments:           req.Comments,
		Timeline:           timeline,
		Recurring:          req.Recurring,
		ForwardToCommittee: forward,
	}
	payload, err := grants.BuildApprovalPayload(decision)
	if err != nil {
		writeDomainError(w, "Approval rejected", err)
		return
	}

	timelineJSON, err := json.Marshal(payload.DistributionTimeline)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode timeline", err)
		return
	}
	var recurringJSON []byte
	if payload.RecurringConfig != nil {
		if recurringJSON, err = json.Marshal(payload.RecurringConfig); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode recurring config", err)
			return
		}
	}

	now := time.Now().UTC()
	status := grants.StatusApproved
	if forward {
		status = grants.StatusForwarded
	}
	app.Status = string(status)
	app.ApprovedAmount = payload.ApprovedAmount
	app.Comments = payload.Comments
	app.TimelineJSON = string(timelineJSON)
	app.RecurringJSON = string(recurringJSON)
	app.DecidedBy = req.ApprovedBy
	app.DecidedAt = &now

	// Forwarded applications do not produce payout rows yet; the committee's
	// final approval does. Status and rows land in one transaction so a
	// failure never leaves an approved application without its rows.
	var rows []sqlite.Disbursement
	if !forward {
		rows = make([]sqlite.Disbursement, 0, len(payload.DistributionTimeline))
		for i, e := range payload.DistributionTimeline {
			rows = append(rows, sqlite.Disbursement{
				ApplicationID: app.ID,
				PhaseID:       i + 1,
				Description:   e.Description,
				Percentage:    e.Percentage,
				Amount:        e.Amount,
				DueDate:       e.ExpectedDate.Time,
			})
		}
	}
	if _, err := h.Store.SaveDecision(ctx, *app, rows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save decision", err)
		return
	}

	h.Log.WithFields(logrus.Fields{
		"application": app.ID,
		"status":      app.Status,
		"amount":      app.ApprovedAmount,
		"phases":      len(payload.DistributionTimeline),
	}).Info("application decided")

	writeJSON(w, http.StatusOK, payload)
}

// RejectApplication refuses an application with mandatory remarks.
// POST /api/applications/{id}/reject
func (h *Handler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req RejectApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rejection := grants.Rejection{Remarks: req.Remarks, RejectedBy: req.RejectedBy}
	if err := rejection.Validate(); err != nil {
		writeDomainError(w, "Rejection remarks are required", err)
		return
	}

	app, err := h.Store.GetApplication(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get application", err)
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "Application not found", nil)
		return
	}
	if !grants.Decidable(grants.ApplicationStatus(app.Status)) {
		writeDomainError(w, "Application already decided", grants.ErrNotDecidable)
		return
	}

	now := time.Now().UTC()
	app.Status = string(grants.StatusRejected)
	app.Comments = req.Remarks
	app.DecidedBy = req.RejectedBy
	app.DecidedAt = &now

	if _, err := h.Store.SaveApplication(ctx, *app); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save application", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      grants.StatusRejected,
		"rejected_by": req.RejectedBy,
		"remarks":     req.Remarks,
	})
}

// GetRecurringSchedule previews the recurring payout schedule of a decided
// application. Informational: the payout backend owns the authoritative
// expansion.
// GET /api/applications/{id}/schedule
func (h *Handler) GetRecurringSchedule(w http.ResponseWriter, r *http.Request) {
	app, err := h.Store.GetApplication(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get application", err)
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "Application not found", nil)
		return
	}
	if app.RecurringJSON == "" {
		writeError(w, http.StatusNotFound, "Application has no recurring config", nil)
		return
	}

	var rp grants.RecurringPayload
	if err := json.Unmarshal([]byte(app.RecurringJSON), &rp); err != nil {
		writeError(w, http.StatusInternalServerError, "Stored recurring config is unreadable", err)
		return
	}
	cfg := disburse.RecurringConfig{
		Period:           rp.Period,
		NumberOfPayments: rp.NumberOfPayments,
		AmountPerPayment: rp.AmountPerPayment,
		StartDate:        rp.StartDate,
	}

	var payments []disburse.CyclePayment
	if rp.HasDistributionTimeline {
		payments, err = disburse.Expand(cfg)
	} else {
		// Recurring is the sole disbursement shape; reconcile the rounding
		// remainder against the approved amount.
		payments, err = disburse.ExpandWithTotal(cfg, app.ApprovedAmount)
	}
	if err != nil {
		writeDomainError(w, "Failed to expand schedule", err)
		return
	}

	var total int64
	for _, p := range payments {
		total += p.Amount
	}
	writeJSON(w, http.StatusOK, ScheduleDTO{
		ApplicationID: app.ID,
		Payments:      payments,
		TotalAmount:   total,
	})
}

// ListApplicationDisbursements returns the payout rows of one application.
// GET /api/applications/{id}/disbursements
func (h *Handler) ListApplicationDisbursements(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ds, err := h.Store.ListDisbursements(r.Context(), id, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list disbursements", err)
		return
	}
	writeJSON(w, http.StatusOK, disbursementDTOs(ds))
}

// =============================================================================
// SCHEME HANDLERS
// =============================================================================

// ListSchemes returns all schemes.
// GET /api/schemes
func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	schemes, err := h.Store.ListSchemes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schemes", err)
		return
	}
	dtos := make([]SchemeDTO, 0, len(schemes))
	for _, sc := range schemes {
		dtos = append(dtos, schemeDTO(sc))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateScheme stores a scheme with an optional distribution template.
// POST /api/schemes
func (h *Handler) CreateScheme(w http.ResponseWriter, r *http.Request) {
	var req SaveSchemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := grants.RequireFields(map[string]string{"name": req.Name}, "name"); err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}

	var templateJSON string
	if req.Template != nil {
		encoded, err := factory.EncodeTemplate(*req.Template)
		if err != nil {
			writeDomainError(w, "Invalid distribution template", err)
			return
		}
		templateJSON = encoded
	}

	sc, err := h.Store.SaveScheme(r.Context(), sqlite.Scheme{
		Name:         req.Name,
		Description:  req.Description,
		DonorID:      req.DonorID,
		ProjectID:    req.ProjectID,
		MaxAmount:    req.MaxAmount,
		TemplateJSON: templateJSON,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save scheme", err)
		return
	}
	writeJSON(w, http.StatusCreated, schemeDTO(sc))
}

// GetScheme returns a single scheme.
// GET /api/schemes/{id}
func (h *Handler) GetScheme(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Store.GetScheme(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get scheme", err)
		return
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "Scheme not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, schemeDTO(*sc))
}

// MaterializeSchemeTemplate resolves the scheme's default timeline against
// an anchor date (?anchor=YYYY-MM-DD, default today). This is the "load
// scheme defaults" source for approval forms. Schemes without a template
// fall back to the standard three-installment split.
// GET /api/schemes/{id}/template
func (h *Handler) MaterializeSchemeTemplate(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Store.GetScheme(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get scheme", err)
		return
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "Scheme not found", nil)
		return
	}

	anchor := disburse.Today()
	if q := r.URL.Query().Get("anchor"); q != "" {
		anchor, err = disburse.ParseDate(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid anchor date", err)
			return
		}
	}

	tpl := disburse.FallbackTemplate()
	if sc.TemplateJSON != "" {
		tpl, err = factory.ParseTemplate(sc.TemplateJSON)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Stored template is unreadable", err)
			return
		}
	}

	timeline := tpl.Materialize(anchor)
	writeJSON(w, http.StatusOK, MaterializedTemplateDTO{
		SchemeID: sc.ID,
		Anchor:   anchor.String(),
		Phases:   timeline.Phases,
	})
}

// =============================================================================
// BENEFICIARY HANDLERS
// =============================================================================

// ListBeneficiaries returns all beneficiaries.
// GET /api/beneficiaries
func (h *Handler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	bens, err := h.Store.ListBeneficiaries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list beneficiaries", err)
		return
	}
	dtos := make([]BeneficiaryDTO, 0, len(bens))
	for _, b := range bens {
		dtos = append(dtos, beneficiaryDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBeneficiary registers a beneficiary after format validation.
// POST /api/beneficiaries
func (h *Handler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	h.saveBeneficiary(w, r, "")
}

// UpdateBeneficiary overwrites a beneficiary record.
// PUT /api/beneficiaries/{id}
func (h *Handler) UpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	h.saveBeneficiary(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveBeneficiary(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req SaveBeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := grants.RequireFields(map[string]string{"name": req.Name, "mobile": req.Mobile}, "name", "mobile"); err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}
	if err := grants.ValidateContact(req.Mobile, req.Email); err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}

	rec := sqlite.Beneficiary{
		ID:       id,
		Name:     req.Name,
		Mobile:   req.Mobile,
		Email:    req.Email,
		Address:  req.Address,
		District: req.District,
		State:    req.State,
	}
	if id != "" {
		existing, err := h.Store.GetBeneficiary(ctx, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load beneficiary", err)
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, "Beneficiary not found", nil)
			return
		}
		rec.CreatedAt = existing.CreatedAt
	}

	saved, err := h.Store.SaveBeneficiary(ctx, rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save beneficiary", err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, beneficiaryDTO(saved))
}

// GetBeneficiary returns a single beneficiary.
// GET /api/beneficiaries/{id}
func (h *Handler) GetBeneficiary(w http.ResponseWriter, r *http.Request) {
	b, err := h.Store.GetBeneficiary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get beneficiary", err)
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "Beneficiary not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, beneficiaryDTO(*b))
}

// =============================================================================
// DONOR / PROJECT / USER HANDLERS
// =============================================================================

// ListDonors returns all donors.
// GET /api/donors
func (h *Handler) ListDonors(w http.ResponseWriter, r *http.Request) {
	donors, err := h.Store.ListDonors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list donors", err)
		return
	}
	dtos := make([]DonorDTO, 0, len(donors))
	for _, d := range donors {
		dtos = append(dtos, DonorDTO{
			ID: d.ID, Name: d.Name, Email: d.Email, Phone: d.Phone,
			CreatedAt: d.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDonor registers a donor.
// POST /api/donors
func (h *Handler) CreateDonor(w http.ResponseWriter, r *http.Request) {
	var req SaveDonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := grants.RequireFields(map[string]string{"name": req.Name}, "name"); err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}
	if req.Email != "" && !grants.ValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "email must be a valid e-mail address", nil)
		return
	}

	d, err := h.Store.SaveDonor(r.Context(), sqlite.Donor{Name: req.Name, Email: req.Email, Phone: req.Phone})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save donor", err)
		return
	}
	writeJSON(w, http.StatusCreated, DonorDTO{
		ID: d.ID, Name: d.Name, Email: d.Email, Phone: d.Phone,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	})
}

// GetDonor returns a single donor.
// GET /api/donors/{id}
func (h *Handler) GetDonor(w http.ResponseWriter, r *http.Request) {
	d, err := h.Store.GetDonor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get donor", err)
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "Donor not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, DonorDTO{
		ID: d.ID, Name: d.Name, Email: d.Email, Phone: d.Phone,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	})
}

// ListProjects returns all projects.
// GET /api/projects
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, ProjectDTO{
			ID: p.ID, Name: p.Name, DonorID: p.DonorID, Description: p.Description,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject registers a project.
// POST /api/projects
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := grants.RequireFields(map[string]string{"name": req.Name}, "name"); err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}

	p, err := h.Store.SaveProject(r.Context(), sqlite.Project{
		Name: req.Name, DonorID: req.DonorID, Description: req.Description,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusCreated, ProjectDTO{
		ID: p.ID, Name: p.Name, DonorID: p.DonorID, Description: p.Description,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	})
}

// GetProject returns a single project.
// GET /api/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get project", err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "Project not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ProjectDTO{
		ID: p.ID, Name: p.Name, DonorID: p.DonorID, Description: p.Description,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	})
}

// ListUsers returns all console users.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, UserDTO{
			ID: u.ID, Name: u.Name, Email: u.Email, Mobile: u.Mobile, Role: u.Role,
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser registers a console user.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := grants.RequireFields(map[string]string{
		"name": req.Name, "email": req.Email, "role": req.Role,
	}, "name", "email", "role"); err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}
	if !grants.ValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "email must be a valid e-mail address", nil)
		return
	}
	if req.Mobile != "" && !grants.ValidMobile(req.Mobile) {
		writeError(w, http.StatusBadRequest, "mobile must be 10 digits starting with 6-9", nil)
		return
	}

	u, err := h.Store.SaveUser(r.Context(), sqlite.User{
		Name: req.Name, Email: req.Email, Mobile: req.Mobile, Role: req.Role,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, UserDTO{
		ID: u.ID, Name: u.Name, Email: u.Email, Mobile: u.Mobile, Role: u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	})
}

// GetUser returns a single console user.
// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, UserDTO{
		ID: u.ID, Name: u.Name, Email: u.Email, Mobile: u.Mobile, Role: u.Role,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// MASTER-DATA HANDLERS
// =============================================================================

// ListMasterConfigs returns workflow configs, optionally filtered by ?kind=.
// GET /api/masterdata
func (h *Handler) ListMasterConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Store.ListMasterConfigs(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list master data", err)
		return
	}
	dtos := make([]MasterConfigDTO, 0, len(configs))
	for _, m := range configs {
		dtos = append(dtos, masterConfigDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveMasterConfig creates or updates a workflow config record. Updates bump
// the stored version.
// POST /api/masterdata
func (h *Handler) SaveMasterConfig(w http.ResponseWriter, r *http.Request) {
	var req SaveMasterConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := grants.RequireFields(map[string]string{
		"kind": req.Kind, "name": req.Name, "config": req.ConfigJSON,
	}, "kind", "name", "config"); err != nil {
		writeDomainError(w, "Validation failed", err)
		return
	}
	if !json.Valid([]byte(req.ConfigJSON)) {
		writeError(w, http.StatusBadRequest, "config must be a JSON document", nil)
		return
	}

	m, err := h.Store.SaveMasterConfig(r.Context(), sqlite.MasterConfig{
		ID: req.ID, Kind: req.Kind, Name: req.Name, ConfigJSON: req.ConfigJSON,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save master data", err)
		return
	}
	writeJSON(w, http.StatusCreated, masterConfigDTO(m))
}

// GetMasterConfig returns one workflow config record.
// GET /api/masterdata/{id}
func (h *Handler) GetMasterConfig(w http.ResponseWriter, r *http.Request) {
	m, err := h.Store.GetMasterConfig(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get master data", err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "Master data record not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, masterConfigDTO(*m))
}

// =============================================================================
// DISBURSEMENT HANDLERS
// =============================================================================

// ListDisbursements returns payout rows, optionally filtered by ?status=.
// GET /api/disbursements
func (h *Handler) ListDisbursements(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Store.ListDisbursements(r.Context(), "", r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list disbursements", err)
		return
	}
	writeJSON(w, http.StatusOK, disbursementDTOs(ds))
}

// MarkDisbursementPaid records a confirmed payout.
// POST /api/disbursements/{id}/paid
func (h *Handler) MarkDisbursementPaid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.MarkDisbursementPaid(r.Context(), id, time.Now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Disbursement not found or already paid", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to mark disbursement paid", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": sqlite.DisbursementPaid})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetData wipes every table. Development convenience only; the router
// should not expose it in production deployments.
// POST /api/admin/reset
func (h *Handler) ResetData(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset data", err)
		return
	}
	h.Log.Warn("all data reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func timelineFromInput(inputs []PhaseInput) (disburse.Timeline, error) {
	t := disburse.Timeline{}
	for _, in := range inputs {
		due, err := disburse.ParseDate(in.DueDate)
		if err != nil {
			return disburse.Timeline{}, err
		}
		t, _ = t.Append(disburse.Phase{
			Description: in.Description,
			Percentage:  in.Percentage,
			DueDate:     due,
			Notes:       in.Notes,
		})
	}
	return t, nil
}

// applicationDTO maps a stored application to its response shape. Corrupt
// stored JSON is logged and omitted rather than failing the whole listing.
func (h *Handler) applicationDTO(a sqlite.Application) ApplicationDTO {
	dto := ApplicationDTO{
		ID:              a.ID,
		BeneficiaryID:   a.BeneficiaryID,
		SchemeID:        a.SchemeID,
		RequestedAmount: a.RequestedAmount,
		ApprovedAmount:  a.ApprovedAmount,
		Status:          grants.ApplicationStatus(a.Status),
		Comments:        a.Comments,
		DecidedBy:       a.DecidedBy,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
	}
	if a.DecidedAt != nil {
		dto.DecidedAt = a.DecidedAt.Format(time.RFC3339)
	}
	if a.TimelineJSON != "" {
		if err := json.Unmarshal([]byte(a.TimelineJSON), &dto.Timeline); err != nil {
			h.Log.WithError(err).WithField("application", a.ID).
				Warn("stored timeline is unreadable")
		}
	}
	if a.RecurringJSON != "" {
		var rp grants.RecurringPayload
		if err := json.Unmarshal([]byte(a.RecurringJSON), &rp); err != nil {
			h.Log.WithError(err).WithField("application", a.ID).
				Warn("stored recurring config is unreadable")
		} else {
			dto.Recurring = &rp
		}
	}
	return dto
}

func schemeDTO(sc sqlite.Scheme) SchemeDTO {
	dto := SchemeDTO{
		ID:          sc.ID,
		Name:        sc.Name,
		Description: sc.Description,
		DonorID:     sc.DonorID,
		ProjectID:   sc.ProjectID,
		MaxAmount:   sc.MaxAmount,
		CreatedAt:   sc.CreatedAt.Format(time.RFC3339),
	}
	if sc.TemplateJSON != "" {
		if tpl, err := factory.ParseTemplate(sc.TemplateJSON); err == nil {
			dto.Template = &tpl
		}
	}
	return dto
}

func beneficiaryDTO(b sqlite.Beneficiary) BeneficiaryDTO {
	return BeneficiaryDTO{
		ID:        b.ID,
		Name:      b.Name,
		Mobile:    b.Mobile,
		Email:     b.Email,
		Address:   b.Address,
		District:  b.District,
		State:     b.State,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}

func masterConfigDTO(m sqlite.MasterConfig) MasterConfigDTO {
	return MasterConfigDTO{
		ID:         m.ID,
		Kind:       m.Kind,
		Name:       m.Name,
		ConfigJSON: m.ConfigJSON,
		Version:    m.Version,
		UpdatedAt:  m.UpdatedAt.Format(time.RFC3339),
	}
}

func disbursementDTOs(ds []sqlite.Disbursement) []DisbursementDTO {
	dtos := make([]DisbursementDTO, 0, len(ds))
	for _, d := range ds {
		dto := DisbursementDTO{
			ID:            d.ID,
			ApplicationID: d.ApplicationID,
			PhaseID:       d.PhaseID,
			Description:   d.Description,
			Percentage:    d.Percentage,
			Amount:        d.Amount,
			DueDate:       d.DueDate.Format(disburse.ISODate),
			Status:        d.Status,
		}
		if d.PaidAt != nil {
			dto.PaidAt = d.PaidAt.Format(time.RFC3339)
		}
		dtos = append(dtos, dto)
	}
	return dtos
}
