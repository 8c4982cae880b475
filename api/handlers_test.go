/*
handlers_test.go - Unit tests for API handlers

Tests for:
- The approval flow (timeline gate, allocation, disbursement rows)
- Rejection with mandatory remarks
- Scheme template materialization
- Beneficiary contact validation
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayog/grant-engine/disburse"
	"github.com/sahayog/grant-engine/grants"
	"github.com/sahayog/grant-engine/store/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	srv := httptest.NewServer(NewRouter(NewHandler(store, log), nil))
	t.Cleanup(func() {
		srv.Close()
		store.Close()
	})
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// seedApplication creates a beneficiary, a scheme, and a pending application
// through the API, returning the application id.
func seedApplication(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/beneficiaries", SaveBeneficiaryRequest{
		Name: "Asha Devi", Mobile: "9876543210", District: "Patna", State: "Bihar",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ben := decode[BeneficiaryDTO](t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/schemes", SaveSchemeRequest{
		Name: "Widow Pension", MaxAmount: 1000000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	scheme := decode[SchemeDTO](t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/applications", CreateApplicationRequest{
		BeneficiaryID: ben.ID, SchemeID: scheme.ID, RequestedAmount: 500000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[ApplicationDTO](t, resp).ID
}

// =============================================================================
// APPROVAL FLOW
// =============================================================================

func TestApproveApplication_CreatesDisbursements(t *testing.T) {
	// GIVEN: A pending application for 500,000
	// WHEN: Approved with a 40/30/30 timeline
	// THEN: Status flips, amounts are allocated per phase, and one payout
	//       row exists per phase

	srv, store := newTestServer(t)
	appID := seedApplication(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/approve", ApproveApplicationRequest{
		ApprovedAmount: 500000,
		Comments:       "verified field report",
		ApprovedBy:     "officer-1",
		Timeline: []PhaseInput{
			{Description: "Advance", Percentage: 40, DueDate: "2026-02-01"},
			{Description: "Midterm", Percentage: 30, DueDate: "2026-05-01"},
			{Description: "Completion", Percentage: 30, DueDate: "2026-08-01"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decode[grants.ApprovalPayload](t, resp)
	require.Len(t, payload.DistributionTimeline, 3)
	assert.Equal(t, int64(200000), payload.DistributionTimeline[0].Amount)
	assert.Equal(t, int64(150000), payload.DistributionTimeline[1].Amount)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/applications/"+appID, nil)
	app := decode[ApplicationDTO](t, resp)
	assert.Equal(t, grants.StatusApproved, app.Status)
	assert.Equal(t, int64(500000), app.ApprovedAmount)

	rows, err := store.ListDisbursements(context.Background(), appID, "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2026-02-01", rows[0].DueDate.Format("2006-01-02"))
	assert.Equal(t, sqlite.DisbursementScheduled, rows[0].Status)
}

func TestApproveApplication_PartialTimelineRejected(t *testing.T) {
	// A 90% timeline fails the approval gate with 400 and leaves the
	// application pending.
	srv, store := newTestServer(t)
	appID := seedApplication(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/approve", ApproveApplicationRequest{
		ApprovedAmount: 500000,
		Comments:       "approved",
		Timeline: []PhaseInput{
			{Description: "Advance", Percentage: 50, DueDate: "2026-02-01"},
			{Description: "Final", Percentage: 40, DueDate: "2026-06-01"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	app, err := store.GetApplication(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, string(grants.StatusPending), app.Status)

	rows, err := store.ListDisbursements(context.Background(), appID, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestApproveApplication_AlreadyDecidedConflicts(t *testing.T) {
	srv, _ := newTestServer(t)
	appID := seedApplication(t, srv)

	body := ApproveApplicationRequest{
		ApprovedAmount: 100000,
		Comments:       "approved",
		Timeline:       []PhaseInput{{Description: "Full", Percentage: 100, DueDate: "2026-03-01"}},
	}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/approve", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/approve", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestForwardApplication_AllowsPartialTimeline(t *testing.T) {
	// Forwarding uses the template gate; no payout rows until final approval.
	srv, store := newTestServer(t)
	appID := seedApplication(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/forward", ApproveApplicationRequest{
		ApprovedAmount: 500000,
		Comments:       "above my sanction limit",
		Timeline:       []PhaseInput{{Description: "Advance", Percentage: 60, DueDate: "2026-02-01"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	app, err := store.GetApplication(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, string(grants.StatusForwarded), app.Status)

	rows, err := store.ListDisbursements(context.Background(), appID, "")
	require.NoError(t, err)
	assert.Empty(t, rows)

	// A forwarded application can still be approved by the committee.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/approve", ApproveApplicationRequest{
		ApprovedAmount: 500000,
		Comments:       "committee approved",
		Timeline: []PhaseInput{
			{Description: "Advance", Percentage: 60, DueDate: "2026-02-01"},
			{Description: "Final", Percentage: 40, DueDate: "2026-07-01"},
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRejectApplication_RequiresRemarks(t *testing.T) {
	srv, _ := newTestServer(t)
	appID := seedApplication(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/reject", RejectApplicationRequest{
		Remarks: "   ",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/reject", RejectApplicationRequest{
		Remarks: "income certificate inconsistent", RejectedBy: "officer-1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/applications/"+appID, nil)
	app := decode[ApplicationDTO](t, resp)
	assert.Equal(t, grants.StatusRejected, app.Status)
}

func TestApproveApplication_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications/nope/approve", ApproveApplicationRequest{
		ApprovedAmount: 1000,
		Comments:       "x",
		Timeline:       []PhaseInput{{Percentage: 100, DueDate: "2026-01-01"}},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// RECURRING SCHEDULE
// =============================================================================

func TestGetRecurringSchedule(t *testing.T) {
	srv, _ := newTestServer(t)
	appID := seedApplication(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/approve", ApproveApplicationRequest{
		ApprovedAmount: 120000,
		Comments:       "monthly stipend",
		Timeline:       []PhaseInput{{Description: "Full", Percentage: 100, DueDate: "2026-02-01"}},
		Recurring: &disburse.RecurringConfig{
			Period:           disburse.PeriodMonthly,
			NumberOfPayments: 12,
			AmountPerPayment: 10000,
			StartDate:        disburse.NewDate(2026, time.February, 1),
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/applications/"+appID+"/schedule", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	schedule := decode[ScheduleDTO](t, resp)
	require.Len(t, schedule.Payments, 12)
	assert.Equal(t, int64(120000), schedule.TotalAmount)
}

func TestGetRecurringSchedule_NoneConfigured(t *testing.T) {
	srv, _ := newTestServer(t)
	appID := seedApplication(t, srv)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/applications/"+appID+"/schedule", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// SCHEME TEMPLATES
// =============================================================================

func TestMaterializeSchemeTemplate_Fallback(t *testing.T) {
	// A scheme without a template materializes the standard 34/33/33 split.
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/schemes", SaveSchemeRequest{Name: "Generic Aid"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	scheme := decode[SchemeDTO](t, resp)

	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/schemes/%s/template?anchor=2026-01-20", srv.URL, scheme.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tpl := decode[MaterializedTemplateDTO](t, resp)
	require.Len(t, tpl.Phases, 3)
	assert.Equal(t, 34, tpl.Phases[0].Percentage)
	assert.Equal(t, "2026-01-20", tpl.Phases[0].DueDate.String())
	assert.Equal(t, "2026-04-20", tpl.Phases[1].DueDate.String())
	assert.Equal(t, "2026-07-19", tpl.Phases[2].DueDate.String())
}

func TestMaterializeSchemeTemplate_InvalidAnchor(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/schemes", SaveSchemeRequest{Name: "Generic Aid"})
	scheme := decode[SchemeDTO](t, resp)

	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/schemes/%s/template?anchor=20-01-2026", srv.URL, scheme.ID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// BENEFICIARY VALIDATION
// =============================================================================

func TestCreateBeneficiary_InvalidMobile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/beneficiaries", SaveBeneficiaryRequest{
		Name: "Asha Devi", Mobile: "12345",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[ErrorResponse](t, resp)
	assert.Contains(t, body.Details, "mobile")
}

func TestCreateApplication_UnknownBeneficiary(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications", CreateApplicationRequest{
		BeneficiaryID: "ghost", SchemeID: "ghost", RequestedAmount: 1000,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApplicationDTO_CorruptStoredJSONIsLogged(t *testing.T) {
	// A corrupt stored timeline must not vanish silently from the response
	// path; the mapper logs a warning naming the application.
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log, hook := logtest.NewNullLogger()
	h := NewHandler(store, log)

	dto := h.applicationDTO(sqlite.Application{
		ID:           "app-1",
		TimelineJSON: "{not json",
	})
	assert.Empty(t, dto.Timeline)

	require.NotEmpty(t, hook.Entries)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "app-1", entry.Data["application"])
}

// =============================================================================
// DISBURSEMENT ENDPOINTS
// =============================================================================

func TestMarkDisbursementPaid_Endpoint(t *testing.T) {
	srv, store := newTestServer(t)
	appID := seedApplication(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/approve", ApproveApplicationRequest{
		ApprovedAmount: 100000,
		Comments:       "approved",
		Timeline:       []PhaseInput{{Description: "Full", Percentage: 100, DueDate: "2026-01-01"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rows, err := store.ListDisbursements(context.Background(), appID, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/disbursements/"+rows[0].ID+"/paid", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/disbursements/"+rows[0].ID+"/paid", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
