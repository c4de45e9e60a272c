package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"retail-bank/internal/adapter/http/dto"
	"retail-bank/internal/core/ports"
	"retail-bank/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler serves transfers, deposits and ledger reads.
type TransactionHandler struct {
	engine     ports.TransactionEngine
	ledgerSvc  ports.LedgerService
	accountSvc ports.AccountService
}

func NewTransactionHandler(engine ports.TransactionEngine, ledgerSvc ports.LedgerService, accountSvc ports.AccountService) *TransactionHandler {
	return &TransactionHandler{engine: engine, ledgerSvc: ledgerSvc, accountSvc: accountSvc}
}

// Transfer handles POST /api/v1/transactions/transfer.
func (h *TransactionHandler) Transfer(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.engine.Transfer(c.Request.Context(), caller, req.ToPort())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Transfer completed successfully", dto.NewTransactionResponse(txn))
}

// Deposit handles POST /api/v1/admin/deposits.
func (h *TransactionHandler) Deposit(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req dto.DepositRequest
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.engine.Deposit(c.Request.Context(), caller, req.ToPort())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Deposit completed successfully", dto.NewTransactionResponse(txn))
}

// History handles GET /api/v1/transactions. Rows carry their direction
// relative to the caller's account.
func (h *TransactionHandler) History(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	rows, err := h.ledgerSvc.History(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}

	own := ""
	if len(rows) > 0 {
		details, err := h.accountSvc.GetMine(c.Request.Context(), caller)
		if err != nil {
			response.Error(c, err)
			return
		}
		own = details.Account.AccountNumber
	}
	response.OK(c, "Transactions fetched successfully", dto.NewTransactionList(rows, own))
}

// Statement handles GET /api/v1/transactions/statement.
func (h *TransactionHandler) Statement(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	// buffered so a failure can still produce a JSON error
	var buf bytes.Buffer
	if err := h.ledgerSvc.Statement(c.Request.Context(), caller, &buf); err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("statement-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// AllTransactions handles GET /api/v1/admin/transactions?type=.
func (h *TransactionHandler) AllTransactions(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	rows, err := h.ledgerSvc.AllTransactions(c.Request.Context(), caller, c.DefaultQuery("type", "all"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Transactions fetched successfully", dto.NewTransactionList(rows, ""))
}
