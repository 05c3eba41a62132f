package models

import "time"

const (
	OrderStatusReceived  = "received"
	OrderStatusConfirmed = "confirmed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	OrderUID      string     `json:"order_uid" validate:"required,min=5,max=50"`
	RestaurantID  string     `json:"restaurant_id" validate:"required,uuid4"`
	CustomerName  string     `json:"customer_name" validate:"required,max=100"`
	CustomerPhone string     `json:"customer_phone" validate:"omitempty,phone"`
	TableLabel    string     `json:"table_label" validate:"max=30"`
	Lines         []CartLine `json:"lines" validate:"required,min=1,dive"`
	GrandTotal    int64      `json:"grand_total" validate:"gte=0"`
	Status        string     `json:"status" validate:"required,order_status"`
	CreatedAt     time.Time  `json:"created_at" validate:"required,not_future,not_ancient"`
}

// CartTotal считает сумму всех единиц корзины; она должна совпадать с GrandTotal
// и с суммой subtotal сгруппированных строк.
func (o *Order) CartTotal() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.UnitTotal
	}
	return total
}
