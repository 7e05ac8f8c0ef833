package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sacco/domain"
	"sacco/models"
	"sacco/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server        *Server
	loans         *MockLoanService
	contributions *MockContributionService
	reconciler    *MockCallbackReconciler
	expiry        *MockGuarantorExpiryService
	redispatch    *MockRedispatchService
	interest      *MockInterestService
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		loans:         new(MockLoanService),
		contributions: new(MockContributionService),
		reconciler:    new(MockCallbackReconciler),
		expiry:        new(MockGuarantorExpiryService),
		redispatch:    new(MockRedispatchService),
		interest:      new(MockInterestService),
	}
	ts.server = NewServer(Services{
		Loans:         ts.loans,
		Contributions: ts.contributions,
		Reconciler:    ts.reconciler,
		Expiry:        ts.expiry,
		Redispatch:    ts.redispatch,
		Interest:      ts.interest,
	})
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreateLoan_Created(t *testing.T) {
	ts := newTestServer()

	ts.loans.On("CreateLoan", mock.Anything, mock.MatchedBy(func(req service.CreateLoanRequest) bool {
		return req.MemberID == 1 &&
			req.Amount.Equal(amount("3000")) &&
			req.TimelineMonths == 6 &&
			req.Reason == models.LoanReasonBusiness &&
			req.RepaymentFrequency == models.RepaymentFrequencyMonthly &&
			len(req.GuarantorMemberIDs) == 2
	})).Return(&models.LoanDetail{
		Loan: &models.LoanAccount{ID: 10, MemberID: 1, Status: models.LoanStatusPendingGuarantor},
	}, nil)

	w := ts.do(http.MethodPost, "/api/v1/loans", `{
		"member_id": 1,
		"requested_amount": "3000.00",
		"timeline_months": 6,
		"loan_reason": "business",
		"repayment_frequency": "monthly",
		"guarantor_member_ids": [2, 3]
	}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	loan := decodeBody(t, w)["loan"].(map[string]any)
	assert.Equal(t, "PendingGuarantor", loan["status"])
	ts.loans.AssertExpectations(t)
}

func TestCreateLoan_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "insufficient savings",
			err:        domain.Validationf("You can only borrow up to 3x your savings (KES 3000.00). Your current savings: KES 1000.00"),
			wantStatus: http.StatusBadRequest,
			wantError:  "You can only borrow up to 3x your savings (KES 3000.00). Your current savings: KES 1000.00",
		},
		{
			name:       "conflict",
			err:        domain.Conflictf("Loan is not pending manager approval."),
			wantStatus: http.StatusConflict,
			wantError:  "Loan is not pending manager approval.",
		},
		{
			name:       "not found",
			err:        domain.NotFound("member", int64(1)),
			wantStatus: http.StatusNotFound,
			wantError:  "member 1 not found",
		},
		{
			name:       "internal",
			err:        errors.New("failed to begin transaction: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.loans.On("CreateLoan", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := ts.do(http.MethodPost, "/api/v1/loans", `{"member_id": 1, "requested_amount": 4000}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
		})
	}
}

func TestCreateLoan_MalformedBody(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/v1/loans", `{"member_id": "one"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	ts.loans.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything)
}

func TestGetLoan(t *testing.T) {
	ts := newTestServer()
	ts.loans.On("GetLoan", mock.Anything, int64(10)).Return(&models.LoanDetail{
		Loan:           &models.LoanAccount{ID: 10, Status: models.LoanStatusPendingGuarantor},
		RequiredAction: models.LoanActionReplaceGuarantor,
	}, nil)

	w := ts.do(http.MethodGet, "/api/v1/loans/10", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "replace_guarantor", decodeBody(t, w)["required_action"])
}

func TestGetLoan_InvalidID(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodGet, "/api/v1/loans/abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	ts.loans.AssertNotCalled(t, "GetLoan", mock.Anything, mock.Anything)
}

func TestDecideLoan_NormalizesAction(t *testing.T) {
	ts := newTestServer()
	ts.loans.On("DecideLoan", mock.Anything, int64(10), domain.ManagerActionReject, "Insufficient history").
		Return(&models.LoanAccount{ID: 10, Status: models.LoanStatusRejected}, nil)

	w := ts.do(http.MethodPost, "/api/v1/loans/10/decision", `{"action": "REJECT", "reason": "Insufficient history"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rejected", decodeBody(t, w)["status"])
}

func TestDisburseLoan_GatewayFailureStillSucceeds(t *testing.T) {
	ts := newTestServer()
	ts.loans.On("DisburseLoan", mock.Anything, int64(10)).Return(&service.DisbursementResult{
		Loan:        &models.LoanAccount{ID: 10, Status: models.LoanStatusApproved},
		Transaction: &models.Transaction{ID: 5, Status: models.TransactionStatusFailed},
	}, nil)

	w := ts.do(http.MethodPost, "/api/v1/loans/10/disburse", "")

	assert.Equal(t, http.StatusOK, w.Code)
	tx := decodeBody(t, w)["transaction"].(map[string]any)
	assert.Equal(t, "failed", tx["status"])
}

func TestRepayLoan(t *testing.T) {
	ts := newTestServer()
	ts.loans.On("RepayLoan", mock.Anything, int64(10), mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(amount("500"))
	}), "254712345678").Return(&service.RepaymentResult{
		Repayment:   &models.LoanRepayment{ID: 1},
		Transaction: &models.Transaction{ID: 6, Status: models.TransactionStatusProcessing},
	}, nil)

	w := ts.do(http.MethodPost, "/api/v1/loans/10/repayments", `{"amount": 500, "phone_number": "254712345678"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	ts.loans.AssertExpectations(t)
}

func TestReplaceGuarantor(t *testing.T) {
	ts := newTestServer()
	ts.loans.On("ReplaceGuarantor", mock.Anything, int64(10), int64(100), int64(7)).
		Return(&models.Guarantor{ID: 102, LoanID: 10, MemberID: 7, Status: models.GuarantorStatusPending}, nil)

	w := ts.do(http.MethodPost, "/api/v1/loans/10/guarantors/100/replace", `{"member_id": 7}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	ts.loans.AssertExpectations(t)
}

func TestRespondGuarantor(t *testing.T) {
	ts := newTestServer()
	ts.loans.On("RespondAsGuarantor", mock.Anything, int64(100), models.GuarantorActionApprove).
		Return(&models.Guarantor{ID: 100, Status: models.GuarantorStatusApproved}, nil)

	w := ts.do(http.MethodPost, "/api/v1/guarantors/100/respond", `{"action": "approve"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	ts.loans.AssertExpectations(t)
}

func TestRespondGuarantor_Conflict(t *testing.T) {
	ts := newTestServer()
	ts.loans.On("RespondAsGuarantor", mock.Anything, int64(100), models.GuarantorActionApprove).
		Return(nil, domain.Conflictf("Guarantor has already responded or expired."))

	w := ts.do(http.MethodPost, "/api/v1/guarantors/100/respond", `{"action": "approve"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExpireGuarantors(t *testing.T) {
	ts := newTestServer()
	ts.expiry.On("ExpireStale", mock.Anything).Return(3, nil)

	w := ts.do(http.MethodPost, "/api/v1/guarantors/expire", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decodeBody(t, w)["expired"])
}

func TestRedispatchTransactions(t *testing.T) {
	ts := newTestServer()
	ts.redispatch.On("RedispatchStale", mock.Anything).Return(2, nil)

	w := ts.do(http.MethodPost, "/api/v1/transactions/redispatch", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["dispatched"])
	ts.redispatch.AssertExpectations(t)
}

func TestRedispatchTransactions_Error(t *testing.T) {
	ts := newTestServer()
	ts.redispatch.On("RedispatchStale", mock.Anything).Return(0, errors.New("connection reset"))

	w := ts.do(http.MethodPost, "/api/v1/transactions/redispatch", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestContribute(t *testing.T) {
	ts := newTestServer()
	ts.contributions.On("Contribute", mock.Anything, mock.MatchedBy(func(req service.ContributionRequest) bool {
		return req.MemberID == 1 && req.Amount.Equal(amount("1000")) && req.PhoneNumber == ""
	})).Return(&models.ContributionResult{
		Contribution: &models.SavingsContribution{ID: 300},
		NewBalance:   amount("1900"),
	}, nil)

	w := ts.do(http.MethodPost, "/api/v1/savings/contributions", `{"member_id": 1, "amount": "1000.00"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1900", decodeBody(t, w)["new_balance"])
}

func TestApplyInterest(t *testing.T) {
	ts := newTestServer()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	ts.interest.On("ApplyDailyInterest", mock.Anything, day).Return(&models.InterestRun{ID: 1, RunDate: day}, nil)

	w := ts.do(http.MethodPost, "/api/v1/savings/interest", `{"date": "2026-03-09"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	ts.interest.AssertExpectations(t)
}

func TestApplyInterest_BadDate(t *testing.T) {
	ts := newTestServer()

	w := ts.do(http.MethodPost, "/api/v1/savings/interest", `{"date": "09/03/2026"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
