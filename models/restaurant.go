package models

import "time"

type Restaurant struct {
	ID            string    `json:"id" validate:"required,uuid4"`
	Name          string    `json:"name" validate:"required,max=100"`
	Slug          string    `json:"slug" validate:"required,max=60,lowercase"`
	WhatsAppPhone string    `json:"whatsapp_phone" validate:"omitempty,phone"`
	Currency      string    `json:"currency" validate:"required,len=3,uppercase"`
	PlanID        string    `json:"plan_id" validate:"omitempty,uuid4"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Table описывает столик ресторана; QR-код на столике ведёт на публичное меню по slug.
type Table struct {
	ID           string `json:"id" validate:"required,uuid4"`
	RestaurantID string `json:"restaurant_id" validate:"required,uuid4"`
	Label        string `json:"label" validate:"required,max=30"`
	QRSlug       string `json:"qr_slug" validate:"required,max=80"`
}

type SubscriptionPlan struct {
	ID           string `json:"id" validate:"required,uuid4"`
	Name         string `json:"name" validate:"required,max=50"`
	MonthlyPrice int64  `json:"monthly_price" validate:"gte=0"`
	MaxMenuItems int    `json:"max_menu_items" validate:"gt=0"`
	Active       bool   `json:"active"`
}
