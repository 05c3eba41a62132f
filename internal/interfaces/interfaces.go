package interfaces

import (
	"encoding/json"

	"menu-service/internal/cache"
	"menu-service/models"
)

// Database интерфейс для работы с базой данных
type Database interface {
	GetRestaurant(id string) (*models.Restaurant, error)
	GetRestaurantBySlug(slug string) (*models.Restaurant, error)
	GetMenu(restaurantID string) (*models.Menu, error)
	SaveMenuItem(item *models.MenuItem) error
	DeleteMenuItem(restaurantID, itemID string) error
	SaveOrder(order *models.Order) error
	GetOrder(orderUID string) (*models.Order, error)
	GetRecentOrders(limit int) (map[string]*models.Order, error)
	Close() error
}

// Cache интерфейс для работы с кэшем. Значения это сериализованные JSON
// ответы, поэтому одна таблица ключей покрывает рестораны, меню и
// заказы, а префиксная инвалидация работает между видами записей.
type Cache interface {
	Get(key string) (json.RawMessage, bool)
	Set(key string, value json.RawMessage)
	BulkSet(values map[string]json.RawMessage)
	Invalidate(prefixes ...string)
	Stats() cache.Stats
}
