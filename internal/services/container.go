package services

// ServiceContainer - все сервисы приложения в одном месте,
// собирается один раз при старте.
type ServiceContainer struct {
	UserService         UserService
	PlanService         PlanService
	PaymentService      PaymentService
	SubscriptionService SubscriptionService
	VPNService          VPNService
	AdminService        AdminService
	NotificationService NotificationService
}
