package models

import "github.com/google/uuid"

// CartLine это одна ЕДИНИЦА товара в корзине. Корзина это плоский список
// таких строк, без поля quantity: две одинаковые пиццы с разными
// добавками остаются различимыми строками. Группировка по количеству
// выполняется композером при оформлении и корзину не меняет.
type CartLine struct {
	LineID         string          `json:"line_id" validate:"required"`
	ItemID         string          `json:"item_id" validate:"required"`
	Name           string          `json:"name" validate:"required"`
	BasePrice      int64           `json:"base_price" validate:"gte=0"`
	Variation      *Variation      `json:"variation,omitempty"`
	Accompaniments []Accompaniment `json:"accompaniments" validate:"dive"`
	// UnitTotal фиксируется в момент добавления в корзину и дальше не
	// пересчитывается по каталогу.
	UnitTotal int64 `json:"unit_total" validate:"gte=0"`
}

// NewCartLine создаёт строку корзины и считает цену единицы: цена
// выбранного варианта заменяет базовую цену, добавки суммируются сверху.
func NewCartLine(item MenuItem, variation *Variation, accompaniments []Accompaniment) CartLine {
	unit := item.BasePrice
	if variation != nil {
		unit = variation.Price
	}
	for _, a := range accompaniments {
		unit += a.Price
	}
	return CartLine{
		LineID:         uuid.NewString(),
		ItemID:         item.ID,
		Name:           item.Name,
		BasePrice:      item.BasePrice,
		Variation:      variation,
		Accompaniments: accompaniments,
		UnitTotal:      unit,
	}
}

// GroupedLine это строка сводки заказа: одна на уникальную комбинацию
// (товар, вариант, набор добавок).
type GroupedLine struct {
	Name           string   `json:"name"`
	VariationName  string   `json:"variation_name,omitempty"`
	Accompaniments []string `json:"accompaniments,omitempty"`
	Quantity       int      `json:"quantity"`
	Subtotal       int64    `json:"subtotal"`
}
