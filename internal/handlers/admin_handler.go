package handlers

import (
	"net/http"

	"vpnbot_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	*BaseHandler
	admin    services.AdminService
	payments services.PaymentService
}

func NewAdminHandler(base *BaseHandler, admin services.AdminService, payments services.PaymentService) *AdminHandler {
	return &AdminHandler{
		BaseHandler: base,
		admin:       admin,
		payments:    payments,
	}
}

// RegisterRoutes вешается на группу, уже закрытую AdminAuthMiddleware.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.GetStats)
	r.GET("/users", h.ListUsers)
	r.PUT("/users/:id", h.UpdateUser)
	r.GET("/payments", h.ListPayments)
	r.POST("/payments", h.CreateManualPayment)
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "stats": stats})
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, offset := ParsePagination(c)
	users, err := h.admin.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "users": users})
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	var update services.AdminUserUpdate
	if !h.BindAndValidate_JSON(c, &update) {
		return
	}

	user, err := h.admin.UpdateUser(c.Request.Context(), userID, update)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "user": user})
}

func (h *AdminHandler) ListPayments(c *gin.Context) {
	limit, offset := ParsePagination(c)
	payments, err := h.admin.ListPayments(c.Request.Context(), limit, offset)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payments": payments})
}

type manualPaymentRequest struct {
	UserID      int64   `json:"user_id" binding:"required" validate:"required,gt=0"`
	Amount      float64 `json:"amount" binding:"required" validate:"required,gt=0"`
	Description string  `json:"description"`
	StarsAmount int     `json:"stars_amount" validate:"min=0"`
}

// CreateManualPayment - ручное зачисление: создается manual_* платеж
// со статусом succeeded и сразу активируется.
func (h *AdminHandler) CreateManualPayment(c *gin.Context) {
	var req manualPaymentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	payment, err := h.payments.CreateManualPayment(c.Request.Context(), req.UserID, req.Amount, req.Description, req.StarsAmount)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payment": payment})
}
