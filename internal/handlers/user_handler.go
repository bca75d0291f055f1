package handlers

import (
	"net/http"

	"vpnbot_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	*BaseHandler
	users         services.UserService
	subscriptions services.SubscriptionService
}

func NewUserHandler(base *BaseHandler, users services.UserService, subscriptions services.SubscriptionService) *UserHandler {
	return &UserHandler{
		BaseHandler:   base,
		users:         users,
		subscriptions: subscriptions,
	}
}

func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup) {
	usersGroup := r.Group("/users")
	{
		usersGroup.POST("", h.CreateUser)
		usersGroup.GET("/:id", h.GetUser)
		usersGroup.GET("/:id/balance", h.GetBalance)
		usersGroup.POST("/:id/trial", h.GrantTrial)
	}

	r.GET("/subscription/status/:id", h.GetSubscriptionStatus)
}

type createUserRequest struct {
	ID       int64  `json:"id" binding:"required" validate:"required,gt=0"`
	Username string `json:"username" validate:"max=100"`
	Email    string `json:"email" validate:"max=100"`
}

// CreateUser регистрирует пользователя. Повторный вызов для того же ID
// возвращает уже существующего пользователя.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, created, err := h.users.RegisterUser(c.Request.Context(), req.ID, req.Username, req.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"status": "success", "user": user})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "user": user})
}

func (h *UserHandler) GetBalance(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	balance, err := h.users.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "user_id": userID, "balance": balance})
}

func (h *UserHandler) GrantTrial(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	user, err := h.subscriptions.GrantTrial(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "user": user})
}

func (h *UserHandler) GetSubscriptionStatus(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	status, err := h.subscriptions.GetSubscriptionStatus(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "subscription": status})
}
