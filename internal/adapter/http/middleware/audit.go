package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful write operations. Routes are matched on their
// registered pattern, so it must be installed on the engine or a group.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var userID *uuid.UUID
		if v, exists := c.Get(CtxUserID); exists {
			if id, ok := v.(uuid.UUID); ok {
				userID = &id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("account_uuid"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/auth/register" && method == http.MethodPost:
		return domain.AuditActionRegister, "user"
	case route == "/api/v1/auth/login" && method == http.MethodPost:
		return domain.AuditActionLogin, "session"
	case route == "/api/v1/accounts" && method == http.MethodPost:
		return domain.AuditActionApply, "account"
	case route == "/api/v1/admin/accounts/:account_uuid/approve" && method == http.MethodPut:
		return domain.AuditActionApprove, "account"
	case route == "/api/v1/admin/accounts/:account_uuid/reject" && method == http.MethodPut:
		return domain.AuditActionReject, "account"
	case route == "/api/v1/transactions/transfer" && method == http.MethodPost:
		return domain.AuditActionTransfer, "transaction"
	case route == "/api/v1/admin/deposits" && method == http.MethodPost:
		return domain.AuditActionDeposit, "transaction"
	case route == "/api/v1/admin/users/password" && method == http.MethodPut:
		return domain.AuditActionPasswordReset, "user"
	}
	return "", ""
}
