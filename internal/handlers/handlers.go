package handlers

// AppHandlers - все HTTP-обработчики приложения
type AppHandlers struct {
	UserHandler    *UserHandler
	PaymentHandler *PaymentHandler
	WebhookHandler *WebhookHandler
	VPNHandler     *VPNHandler
	AdminHandler   *AdminHandler
}
