package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retail-bank/internal/adapter/http/middleware"
	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"
	"retail-bank/internal/core/ports/mocks"
	"retail-bank/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	customer = domain.Caller{UserID: uuid.New(), Role: domain.RoleCustomer}
	admin    = domain.Caller{UserID: uuid.New(), Role: domain.RoleAdmin}
)

// newContext builds a test context with an optional JSON body and caller.
func newContext(method, path string, body interface{}, caller *domain.Caller) (*gin.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, r)
	c.Request.Header.Set("Content-Type", "application/json")
	if caller != nil {
		c.Set(middleware.CtxCaller, *caller)
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Auth Handler Tests ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	userID := uuid.New()
	mockAuth.EXPECT().Register(gomock.Any(), ports.RegisterRequest{
		FullName:        "Asha Rao",
		Email:           "asha@example.com",
		PhoneNumber:     "9876543210",
		Password:        "secret1<>",
		ConfirmPassword: "secret1<>",
	}).Return(&domain.User{
		ID:          userID,
		FullName:    "Asha Rao",
		Email:       "asha@example.com",
		PhoneNumber: "9876543210",
		Role:        domain.RoleCustomer,
	}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/auth/register", gin.H{
		"full_name":        "Asha Rao",
		"email":            "asha@example.com",
		"phone_number":     "9876543210",
		"password":         "secret1<>",
		"confirm_password": "secret1<>",
	}, nil)

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, userID.String(), data["id"])
	assert.Equal(t, "customer", data["role"])
	assert.NotContains(t, data, "password_hash")
	assert.Equal(t, userID, c.MustGet(middleware.CtxUserID))
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

	c, w := newContext(http.MethodPost, "/api/v1/auth/register", gin.H{
		"full_name":    "Asha Rao",
		"email":        "asha@example.com",
		"phone_number": "98765",
		"password":     "secret1",
	}, nil)

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "VAL_001", resp["error_code"])
	assert.Equal(t, "Invalid fields: phone_number (phone), confirm_password (required)", resp["message"])
	assert.Len(t, c.Errors, 1)
}

func TestBindJSON_DoesNotEchoDecoderError(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, _, _ := newTxHandler(ctrl)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/transactions/transfer",
		bytes.NewBufferString(`{"receiver_account":"222222222222","amount":"abc<script>"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxCaller, customer)

	h.Transfer(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "VAL_001", resp["error_code"])
	assert.Equal(t, "Invalid request body", resp["message"])
	assert.NotContains(t, w.Body.String(), "script")
	require.Len(t, c.Errors, 1)
	assert.Contains(t, c.Errors[0].Error(), "decimal")
}

func TestRegister_PhoneExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrPhoneExists())

	c, w := newContext(http.MethodPost, "/api/v1/auth/register", gin.H{
		"full_name":        "Asha Rao",
		"email":            "asha@example.com",
		"phone_number":     "9876543210",
		"password":         "secret1",
		"confirm_password": "secret1",
	}, nil)

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CNF_003", decode(t, w)["error_code"])
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	user := &domain.User{ID: uuid.New(), PhoneNumber: "9876543210", Role: domain.RoleCustomer}
	mockAuth.EXPECT().Login(gomock.Any(), ports.LoginRequest{
		PhoneNumber: "9876543210",
		Password:    "secret1",
	}).Return(&ports.LoginResult{Token: "jwt-token", ExpiresAt: expires, User: user}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/auth/login", gin.H{
		"phone_number": "9876543210",
		"password":     "secret1",
	}, nil)

	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "jwt-token", data["token"])
	assert.Equal(t, float64(expires.Unix()), data["expires_at"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInvalidCredentials())

	c, w := newContext(http.MethodPost, "/api/v1/auth/login", gin.H{
		"phone_number": "9876543210",
		"password":     "wrong",
	}, nil)

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_001", decode(t, w)["error_code"])
}

func TestResetPassword_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	mockAuth.EXPECT().ResetPassword(gomock.Any(), admin, ports.ResetPasswordRequest{
		PhoneNumber:     "9876543210",
		NewPassword:     "newpass1",
		ConfirmPassword: "newpass1",
	}).Return(nil)

	c, w := newContext(http.MethodPut, "/api/v1/admin/users/password", gin.H{
		"phone_number":     "9876543210",
		"new_password":     "newpass1",
		"confirm_password": "newpass1",
	}, &admin)

	h.ResetPassword(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResetPassword_NoCaller(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

	c, w := newContext(http.MethodPut, "/api/v1/admin/users/password", gin.H{}, nil)
	h.ResetPassword(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_002", decode(t, w)["error_code"])
}

// --- Account Handler Tests ---

func validApplyBody() gin.H {
	return gin.H{
		"account_type":         "savings",
		"balance":              "1500.50",
		"aadhar_number":        "123412341234",
		"aadhar_file":          "uploads/aadhar.pdf",
		"pan_number":           "ABCDE1234F",
		"pan_file":             "uploads/pan.pdf",
		"nominee_name":         "Ravi Rao",
		"nominee_relationship": "brother",
		"address":              "12 MG Road, Pune",
	}
}

func TestApply_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAccounts := mocks.NewMockAccountService(ctrl)
	h := NewAccountHandler(mockAccounts, mocks.NewMockApprovalService(ctrl))

	mockAccounts.EXPECT().Apply(gomock.Any(), customer, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Caller, req ports.ApplyRequest) (*domain.Account, error) {
			assert.Equal(t, domain.AccountType("savings"), req.AccountType)
			assert.True(t, req.Balance.Equal(decimal.RequireFromString("1500.50")))
			return &domain.Account{
				ID:            uuid.New(),
				UserID:        customer.UserID,
				AccountNumber: "123456789012",
				AccountType:   req.AccountType,
				Balance:       150050,
				Status:        domain.AccountStatusPending,
			}, nil
		})

	c, w := newContext(http.MethodPost, "/api/v1/accounts", validApplyBody(), &customer)
	h.Apply(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "1500.50", data["balance"])
	assert.Equal(t, "pending", data["status"])
}

func TestApply_InvalidPAN(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAccountHandler(mocks.NewMockAccountService(ctrl), mocks.NewMockApprovalService(ctrl))

	body := validApplyBody()
	body["pan_number"] = "1234"
	c, w := newContext(http.MethodPost, "/api/v1/accounts", body, &customer)
	h.Apply(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMine_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAccounts := mocks.NewMockAccountService(ctrl)
	h := NewAccountHandler(mockAccounts, mocks.NewMockApprovalService(ctrl))

	mockAccounts.EXPECT().GetMine(gomock.Any(), customer).Return(nil, apperror.ErrAccountNotFound())

	c, w := newContext(http.MethodGet, "/api/v1/accounts/me", nil, &customer)
	h.GetMine(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NF_002", decode(t, w)["error_code"])
}

func TestListAll_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAccounts := mocks.NewMockAccountService(ctrl)
	h := NewAccountHandler(mockAccounts, mocks.NewMockApprovalService(ctrl))

	mockAccounts.EXPECT().ListAll(gomock.Any(), admin).Return([]domain.AccountDetails{}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/admin/accounts", nil, &admin)
	h.ListAll(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["data"])
}

func TestApprove_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockApproval := mocks.NewMockApprovalService(ctrl)
	h := NewAccountHandler(mocks.NewMockAccountService(ctrl), mockApproval)

	id := uuid.New()
	mockApproval.EXPECT().Approve(gomock.Any(), admin, id).Return(&ports.ApprovalResult{
		Account: &domain.Account{ID: id, Status: domain.AccountStatusApproved},
		Message: "Account approved successfully",
	}, nil)

	c, w := newContext(http.MethodPut, "/api/v1/admin/accounts/"+id.String()+"/approve", nil, &admin)
	c.Params = gin.Params{{Key: "account_uuid", Value: id.String()}}
	h.Approve(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Account approved successfully", resp["message"])
	assert.Equal(t, "approved", resp["data"].(map[string]interface{})["status"])
}

func TestReject_InvalidTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockApproval := mocks.NewMockApprovalService(ctrl)
	h := NewAccountHandler(mocks.NewMockAccountService(ctrl), mockApproval)

	id := uuid.New()
	mockApproval.EXPECT().Reject(gomock.Any(), admin, id).
		Return(nil, apperror.ErrInvalidTransition("Account status is already rejected"))

	c, w := newContext(http.MethodPut, "/", nil, &admin)
	c.Params = gin.Params{{Key: "account_uuid", Value: id.String()}}
	h.Reject(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CNF_002", decode(t, w)["error_code"])
}

func TestApprove_BadUUID(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAccountHandler(mocks.NewMockAccountService(ctrl), mocks.NewMockApprovalService(ctrl))

	c, w := newContext(http.MethodPut, "/", nil, &admin)
	c.Params = gin.Params{{Key: "account_uuid", Value: "not-a-uuid"}}
	h.Approve(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Transaction Handler Tests ---

func newTxHandler(ctrl *gomock.Controller) (*TransactionHandler, *mocks.MockTransactionEngine, *mocks.MockLedgerService, *mocks.MockAccountService) {
	engine := mocks.NewMockTransactionEngine(ctrl)
	ledger := mocks.NewMockLedgerService(ctrl)
	accounts := mocks.NewMockAccountService(ctrl)
	return NewTransactionHandler(engine, ledger, accounts), engine, ledger, accounts
}

func TestTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, engine, _, _ := newTxHandler(ctrl)

	receiver := "222222222222"
	engine.EXPECT().Transfer(gomock.Any(), customer, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Caller, req ports.TransferRequest) (*domain.Transaction, error) {
			require.NotNil(t, req.Amount)
			assert.Equal(t, "250", req.Amount.String())
			return &domain.Transaction{
				ID:              uuid.New(),
				Reference:       uuid.New(),
				SenderAccount:   "111111111111",
				ReceiverAccount: &receiver,
				Amount:          25000,
				Type:            domain.TransactionTypeTransfer,
				Status:          domain.TransactionStatusSuccess,
			}, nil
		})

	c, w := newContext(http.MethodPost, "/api/v1/transactions/transfer", gin.H{
		"receiver_account": receiver,
		"amount":           250,
	}, &customer)
	h.Transfer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "250.00", data["amount"])
	assert.Equal(t, "success", data["status"])
}

func TestTransfer_MissingFieldsReachEngine(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, engine, _, _ := newTxHandler(ctrl)

	engine.EXPECT().Transfer(gomock.Any(), customer, ports.TransferRequest{}).
		Return(nil, apperror.ErrMissingTransferFields())

	c, w := newContext(http.MethodPost, "/api/v1/transactions/transfer", gin.H{}, &customer)
	h.Transfer(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_005", decode(t, w)["error_code"])
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, engine, _, _ := newTxHandler(ctrl)

	engine.EXPECT().Transfer(gomock.Any(), customer, gomock.Any()).Return(nil, apperror.ErrInsufficientBalance())

	c, w := newContext(http.MethodPost, "/api/v1/transactions/transfer", gin.H{
		"receiver_account": "222222222222",
		"amount":           "1000000",
	}, &customer)
	h.Transfer(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TXN_004", decode(t, w)["error_code"])
}

func TestDeposit_ReadsBalanceField(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, engine, _, _ := newTxHandler(ctrl)

	engine.EXPECT().Deposit(gomock.Any(), admin, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Caller, req ports.DepositRequest) (*domain.Transaction, error) {
			assert.Equal(t, "111111111111", req.AccountNumber)
			require.NotNil(t, req.Amount)
			assert.Equal(t, "500.25", req.Amount.String())
			return &domain.Transaction{
				ID:            uuid.New(),
				SenderAccount: domain.SystemSender,
				Amount:        50025,
				Type:          domain.TransactionTypeCredit,
				Status:        domain.TransactionStatusSuccess,
			}, nil
		})

	c, w := newContext(http.MethodPost, "/api/v1/admin/deposits", gin.H{
		"account_number": "111111111111",
		"balance":        "500.25",
	}, &admin)
	h.Deposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHistory_SetsDirection(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, ledger, accounts := newTxHandler(ctrl)

	own := "111111111111"
	other := "222222222222"
	ledger.EXPECT().History(gomock.Any(), customer).Return([]domain.Transaction{
		{ID: uuid.New(), SenderAccount: own, ReceiverAccount: &other, Amount: 100, Type: domain.TransactionTypeTransfer, Status: domain.TransactionStatusSuccess},
		{ID: uuid.New(), SenderAccount: other, ReceiverAccount: &own, Amount: 200, Type: domain.TransactionTypeTransfer, Status: domain.TransactionStatusSuccess},
	}, nil)
	accounts.EXPECT().GetMine(gomock.Any(), customer).Return(&domain.AccountDetails{
		Account: domain.Account{AccountNumber: own},
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/transactions", nil, &customer)
	h.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	rows := decode(t, w)["data"].([]interface{})
	require.Len(t, rows, 2)
	assert.Equal(t, "debit", rows[0].(map[string]interface{})["direction"])
	assert.Equal(t, "credit", rows[1].(map[string]interface{})["direction"])
}

func TestHistory_EmptySkipsAccountLookup(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, ledger, _ := newTxHandler(ctrl)

	ledger.EXPECT().History(gomock.Any(), customer).Return([]domain.Transaction{}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/transactions", nil, &customer)
	h.History(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["data"])
}

func TestStatement_WritesCSV(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, ledger, _ := newTxHandler(ctrl)

	ledger.EXPECT().Statement(gomock.Any(), customer, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Caller, w io.Writer) error {
			_, err := io.WriteString(w, "date,reference\n")
			return err
		})

	c, w := newContext(http.MethodGet, "/api/v1/transactions/statement", nil, &customer)
	h.Statement(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "date,reference\n", w.Body.String())
}

func TestStatement_ErrorIsJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, ledger, _ := newTxHandler(ctrl)

	ledger.EXPECT().Statement(gomock.Any(), customer, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Caller, w io.Writer) error {
			_, _ = io.WriteString(w, "partial")
			return apperror.ErrAccountNotFound()
		})

	c, w := newContext(http.MethodGet, "/api/v1/transactions/statement", nil, &customer)
	h.Statement(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "partial")
}

func TestAllTransactions_PassesFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, ledger, _ := newTxHandler(ctrl)

	ledger.EXPECT().AllTransactions(gomock.Any(), admin, "credit").Return([]domain.Transaction{}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/admin/transactions?type=credit", nil, &admin)
	h.AllTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAllTransactions_DefaultsToAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	h, _, ledger, _ := newTxHandler(ctrl)

	ledger.EXPECT().AllTransactions(gomock.Any(), admin, "all").Return(nil, apperror.ErrInvalidFilter())

	c, w := newContext(http.MethodGet, "/api/v1/admin/transactions", nil, &admin)
	h.AllTransactions(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health ---

func checker(ctrl *gomock.Controller, name string, err error) *mocks.MockHealthChecker {
	hc := mocks.NewMockHealthChecker(ctrl)
	hc.EXPECT().Name().Return(name).AnyTimes()
	hc.EXPECT().Ping(gomock.Any()).Return(err)
	return hc
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c, w := newContext(http.MethodGet, "/health", nil, nil)
		HealthCheck(checker(ctrl, "postgresql", nil))(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decode(t, w)["status"])
	})

	t.Run("degraded", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c, w := newContext(http.MethodGet, "/health", nil, nil)
		HealthCheck(checker(ctrl, "postgresql", nil), checker(ctrl, "redis", errors.New("refused")))(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "degraded", resp["status"])
		redis := resp["dependencies"].(map[string]interface{})["redis"].(map[string]interface{})
		assert.Equal(t, "refused", redis["error"])
	})
}
