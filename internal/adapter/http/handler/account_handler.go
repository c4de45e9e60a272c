package handler

import (
	"context"

	"retail-bank/internal/adapter/http/dto"
	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"
	"retail-bank/pkg/apperror"
	"retail-bank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccountHandler serves account applications and admin review.
type AccountHandler struct {
	accountSvc  ports.AccountService
	approvalSvc ports.ApprovalService
}

func NewAccountHandler(accountSvc ports.AccountService, approvalSvc ports.ApprovalService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc, approvalSvc: approvalSvc}
}

// Apply handles POST /api/v1/accounts.
func (h *AccountHandler) Apply(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	var req dto.ApplyRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accountSvc.Apply(c.Request.Context(), caller, req.ToPort())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Account application submitted", dto.NewAccountResponse(account))
}

// GetMine handles GET /api/v1/accounts/me.
func (h *AccountHandler) GetMine(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	details, err := h.accountSvc.GetMine(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Account fetched successfully", dto.NewAccountDetailsResponse(details))
}

// ListAll handles GET /api/v1/admin/accounts.
func (h *AccountHandler) ListAll(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	list, err := h.accountSvc.ListAll(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Accounts fetched successfully", dto.NewAccountDetailsList(list))
}

// Approve handles PUT /api/v1/admin/accounts/:account_uuid/approve.
func (h *AccountHandler) Approve(c *gin.Context) {
	h.decide(c, h.approvalSvc.Approve)
}

// Reject handles PUT /api/v1/admin/accounts/:account_uuid/reject.
func (h *AccountHandler) Reject(c *gin.Context) {
	h.decide(c, h.approvalSvc.Reject)
}

type decision func(ctx context.Context, caller domain.Caller, id uuid.UUID) (*ports.ApprovalResult, error)

func (h *AccountHandler) decide(c *gin.Context, fn decision) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("account_uuid"))
	if err != nil {
		response.Error(c, apperror.Validation("account_uuid must be a valid UUID"))
		return
	}

	result, err := fn(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result.Message, dto.NewAccountResponse(result.Account))
}
