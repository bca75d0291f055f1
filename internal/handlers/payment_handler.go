package handlers

import (
	"net/http"

	"vpnbot_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	*BaseHandler
	payments services.PaymentService
	plans    services.PlanService
}

func NewPaymentHandler(base *BaseHandler, payments services.PaymentService, plans services.PlanService) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler: base,
		payments:    payments,
		plans:       plans,
	}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	paymentGroup := r.Group("/payment")
	{
		paymentGroup.GET("/plans", h.GetPlans)
		paymentGroup.POST("/create", h.CreatePayment)
		paymentGroup.POST("/topup", h.CreateTopUp)
		paymentGroup.GET("/check/:paymentId", h.CheckPayment)
		paymentGroup.GET("/user/:id", h.ListUserPayments)
		paymentGroup.POST("/confirm/:paymentId", h.ConfirmPayment)
		paymentGroup.POST("/cancel/:paymentId", h.CancelPayment)
	}
}

func (h *PaymentHandler) GetPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "plans": h.plans.Plans()})
}

type createPaymentRequest struct {
	UserID   int64  `json:"user_id" binding:"required" validate:"required,gt=0"`
	PlanType string `json:"plan_type" binding:"required" validate:"required,oneof=month 4months 12months"`
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.payments.CreateSubscriptionPayment(c.Request.Context(), req.UserID, req.PlanType)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payment": result})
}

type topUpRequest struct {
	UserID      int64   `json:"user_id" binding:"required" validate:"required,gt=0"`
	StarsAmount int     `json:"stars_amount" binding:"required" validate:"required,gt=0"`
	Price       float64 `json:"price" binding:"required" validate:"required,gt=0"`
}

func (h *PaymentHandler) CreateTopUp(c *gin.Context) {
	var req topUpRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.payments.CreateTopUpPayment(c.Request.Context(), req.UserID, req.StarsAmount, req.Price)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payment": result})
}

func (h *PaymentHandler) CheckPayment(c *gin.Context) {
	payment, err := h.payments.CheckPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payment": payment})
}

func (h *PaymentHandler) ListUserPayments(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	payments, err := h.payments.ListUserPayments(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payments": payments})
}

func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	payment, err := h.payments.ConfirmPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payment": payment})
}

func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	payment, err := h.payments.CancelPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payment": payment})
}
