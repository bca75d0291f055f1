package services

import (
	"time"

	"vpnbot_backend/pkg/apperrors"
	"vpnbot_backend/pkg/cache"
)

// Plan - тарифный план подписки
type Plan struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	DurationDays int     `json:"duration_days"`
	Description  string  `json:"description"`
}

const defaultPlanDays = 30

type PlanService interface {
	Plans() []Plan
	PlanByID(id string) (*Plan, error)

	// DurationForAmount возвращает длительность подписки по сумме платежа.
	// Сумма, не совпадающая ни с одним тарифом, дает 30 дней.
	DurationForAmount(amount float64) int
}

type PlanServiceImpl struct {
	cache *cache.TTL[string, []Plan]
}

func NewPlanService() PlanService {
	return &PlanServiceImpl{
		cache: cache.NewTTL[string, []Plan](5 * time.Minute),
	}
}

const plansCacheKey = "plans"

func (s *PlanServiceImpl) Plans() []Plan {
	if plans, ok := s.cache.Get(plansCacheKey); ok {
		return plans
	}

	plans := buildCatalog()
	s.cache.Set(plansCacheKey, plans)
	return plans
}

func (s *PlanServiceImpl) PlanByID(id string) (*Plan, error) {
	for _, p := range s.Plans() {
		if p.ID == id {
			plan := p
			return &plan, nil
		}
	}
	return nil, apperrors.ErrUnknownPlan
}

func (s *PlanServiceImpl) DurationForAmount(amount float64) int {
	for _, p := range s.Plans() {
		if p.Price == amount {
			return p.DurationDays
		}
	}
	return defaultPlanDays
}

func buildCatalog() []Plan {
	return []Plan{
		{
			ID:           "month",
			Name:         "1 месяц",
			Price:        110,
			Currency:     "RUB",
			DurationDays: 30,
			Description:  "30 дней подписки",
		},
		{
			ID:           "4months",
			Name:         "4 месяца",
			Price:        290,
			Currency:     "RUB",
			DurationDays: 120,
			Description:  "120 дней подписки",
		},
		{
			ID:           "12months",
			Name:         "12 месяцев",
			Price:        500,
			Currency:     "RUB",
			DurationDays: 365,
			Description:  "365 дней подписки (выгодная цена)",
		},
	}
}
