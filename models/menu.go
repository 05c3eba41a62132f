package models

import "time"

// Цены хранятся в минимальных единицах валюты (RWF не имеет копеек,
// поэтому int64 без дробной части).

type MenuGroup struct {
	ID           string `json:"id" validate:"required,uuid4"`
	RestaurantID string `json:"restaurant_id" validate:"required,uuid4"`
	Name         string `json:"name" validate:"required,max=60"`
	SortOrder    int    `json:"sort_order" validate:"gte=0"`
}

type MenuItem struct {
	ID             string          `json:"id" validate:"required,uuid4"`
	RestaurantID   string          `json:"restaurant_id" validate:"required,uuid4"`
	GroupID        string          `json:"group_id" validate:"omitempty,uuid4"`
	Name           string          `json:"name" validate:"required,max=100"`
	Description    string          `json:"description" validate:"max=500"`
	BasePrice      int64           `json:"base_price" validate:"gte=0"`
	Available      bool            `json:"available"`
	Variations     []Variation     `json:"variations" validate:"dive"`
	Accompaniments []Accompaniment `json:"accompaniments" validate:"dive"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Variation описывает вариант позиции (размер, объём). Цена варианта ЗАМЕНЯЕТ
// базовую цену позиции, а не добавляется к ней.
type Variation struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required,max=60"`
	Price int64  `json:"price" validate:"gte=0"`
}

// Accompaniment это добавка к позиции, цена строго аддитивна.
type Accompaniment struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required,max=60"`
	Price int64  `json:"price" validate:"gte=0"`
}

// Menu это собранное меню ресторана, то, что кэшируется и отдаётся клиентам.
type Menu struct {
	RestaurantID string      `json:"restaurant_id"`
	Groups       []MenuGroup `json:"groups"`
	Items        []MenuItem  `json:"items"`
}
