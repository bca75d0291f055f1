package handlers

import (
	"fmt"
	"net/http"

	"vpnbot_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type VPNHandler struct {
	*BaseHandler
	vpn services.VPNService
}

func NewVPNHandler(base *BaseHandler, vpn services.VPNService) *VPNHandler {
	return &VPNHandler{
		BaseHandler: base,
		vpn:         vpn,
	}
}

func (h *VPNHandler) RegisterRoutes(r *gin.RouterGroup) {
	vpnGroup := r.Group("/vpn")
	{
		vpnGroup.POST("/connect", h.Connect)
		vpnGroup.POST("/disconnect", h.Disconnect)
		vpnGroup.GET("/status/:id", h.Status)
	}

	wgGroup := r.Group("/wireguard")
	{
		wgGroup.GET("/config/:id", h.GetConfig)
		wgGroup.GET("/qr/:id", h.GetQR)
		wgGroup.GET("/status/:id", h.GetConfigStatus)
	}
}

type vpnRequest struct {
	UserID int64 `json:"user_id" binding:"required" validate:"required,gt=0"`
}

func (h *VPNHandler) Connect(c *gin.Context) {
	var req vpnRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	status, err := h.vpn.Connect(c.Request.Context(), req.UserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "vpn": status})
}

func (h *VPNHandler) Disconnect(c *gin.Context) {
	var req vpnRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	status, err := h.vpn.Disconnect(c.Request.Context(), req.UserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "vpn": status})
}

func (h *VPNHandler) Status(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	status, err := h.vpn.Status(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "vpn": status})
}

// GetConfig отдает wg-quick конфиг файлом.
func (h *VPNHandler) GetConfig(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	text, err := h.vpn.ConfigText(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=vpn_config_%d.conf", userID))
	c.Data(http.StatusOK, "text/plain", []byte(text))
}

// GetQR отдает конфиг в виде PNG QR-кода.
func (h *VPNHandler) GetQR(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	png, err := h.vpn.QRCode(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *VPNHandler) GetConfigStatus(c *gin.Context) {
	userID, err := ParseParamUserID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	status, err := h.vpn.Status(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"user_id": userID,
		"config": gin.H{
			"active":           status.ConfigActive,
			"client_ip":        status.ClientIP,
			"last_connected":   status.LastConnected,
			"connection_count": status.ConnectionCount,
		},
	})
}
