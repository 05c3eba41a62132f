package validation

import (
	"fmt"
	"time"

	"menu-service/models"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("phone", validatePhone)
	validate.RegisterValidation("order_status", validateOrderStatus)
	validate.RegisterValidation("not_future", validateNotFutureDate)
	validate.RegisterValidation("not_ancient", validateNotAncientDate)
}

func ValidateOrder(order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is nil")
	}

	if err := validate.Struct(order); err != nil {
		return formatValidationError(err)
	}

	if err := validateLineTotals(order); err != nil {
		return err
	}

	return nil
}

// ValidateOrderForAPI дополнительно отсекает зарезервированные значения,
// которыми пользуются тесты и демо-продьюсер.
func ValidateOrderForAPI(order *models.Order) error {
	if err := ValidateOrder(order); err != nil {
		return err
	}

	if order.OrderUID == "test" || order.OrderUID == "demo" {
		return fmt.Errorf("зарезервированное значение order_uid")
	}

	return nil
}

func ValidateMenuItem(item *models.MenuItem) error {
	if item == nil {
		return fmt.Errorf("menu item is nil")
	}
	if err := validate.Struct(item); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func ValidateRestaurant(r *models.Restaurant) error {
	if r == nil {
		return fmt.Errorf("restaurant is nil")
	}
	if err := validate.Struct(r); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// validateLineTotals сверяет зафиксированные на строках цены: цена
// единицы = цена варианта (если выбран, иначе базовая) + добавки, а
// grand_total заказа равен сумме всех строк.
func validateLineTotals(order *models.Order) error {
	for _, line := range order.Lines {
		unit := line.BasePrice
		if line.Variation != nil {
			unit = line.Variation.Price
		}
		for _, a := range line.Accompaniments {
			unit += a.Price
		}
		if unit != line.UnitTotal {
			return fmt.Errorf("строка %s: unit_total %d не совпадает с расчётным %d",
				line.LineID, line.UnitTotal, unit)
		}
	}

	if total := order.CartTotal(); total != order.GrandTotal {
		return fmt.Errorf("grand_total %d не совпадает с суммой строк %d",
			order.GrandTotal, total)
	}
	return nil
}

func validatePhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	if len(phone) == 0 {
		return false
	}

	digits := phone
	if phone[0] == '+' {
		digits = phone[1:]
	}
	if len(digits) < 5 || len(digits) > 20 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case models.OrderStatusReceived, models.OrderStatusConfirmed,
		models.OrderStatusDelivered, models.OrderStatusCancelled:
		return true
	}
	return false
}

func validateNotFutureDate(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !date.After(time.Now().Add(24 * time.Hour))
}

func validateNotAncientDate(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return date.After(time.Now().AddDate(-5, 0, 0))
}

func formatValidationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, ve := range verrs {
			return fmt.Errorf("поле %s не прошло проверку %s", ve.Field(), ve.Tag())
		}
	}
	return err
}
