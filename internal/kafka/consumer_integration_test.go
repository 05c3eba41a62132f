// internal/kafka/consumer_integration_test.go
//go:build integration

package kafka

import (
	"encoding/json"
	"log"
	"os"
	"testing"

	"menu-service/internal/db"
	"menu-service/internal/mocks"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

// Тест гоняется против живых постгреса и кафки: заказ ресторана должен
// пройти полный путь обработки и осесть в БД. Ресторан с RESTAURANT_ID
// должен существовать в базе.
func TestKafkaConsumer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	broker := os.Getenv("KAFKA_BROKERS")
	if broker == "" {
		t.Fatal("KAFKA_BROKERS environment variable is not set")
	}

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Fatal("POSTGRES_DSN environment variable is not set")
	}

	restaurantID := os.Getenv("RESTAURANT_ID")
	if restaurantID == "" {
		t.Fatal("RESTAURANT_ID environment variable is not set")
	}

	dbConn, err := db.NewPostgresDB(dsn)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer dbConn.Close()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockCache := mocks.NewMockCache(ctrl)
	mockCache.EXPECT().Set(gomock.Any(), gomock.Any()).AnyTimes()
	mockCache.EXPECT().BulkSet(gomock.Any()).AnyTimes()

	consumer := NewConsumer(Config{
		Brokers:  []string{broker},
		Topic:    "orders",
		GroupID:  "group1",
		DLQTopic: "orders_dlq",
	}, dbConn, mockCache)
	defer consumer.Close()

	order := createTestOrder()
	order.RestaurantID = restaurantID
	msgBytes, _ := json.Marshal(order)
	msg := kafka.Message{Value: msgBytes}

	err = consumer.processMessage(msg)
	assert.NoError(t, err)

	savedOrder, err := dbConn.GetOrder(order.OrderUID)
	assert.NoError(t, err)
	assert.Equal(t, order.OrderUID, savedOrder.OrderUID)
	assert.Equal(t, order.CustomerName, savedOrder.CustomerName)
	assert.Equal(t, order.GrandTotal, savedOrder.GrandTotal)
	assert.Len(t, savedOrder.Lines, len(order.Lines))

	log.Println("интеграционный тест прошел успешно, заказ сохранен в постгре")
}
