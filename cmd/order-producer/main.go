// Демо-продьюсер: генерирует правдоподобные заказы и пишет их в топик
// orders, чтобы было чем кормить консюмер при разработке.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"menu-service/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type demoItem struct {
	name       string
	basePrice  int64
	variations []models.Variation
	addons     []models.Accompaniment
}

var demoMenu = []demoItem{
	{
		name:      "Margherita Pizza",
		basePrice: 8000,
		variations: []models.Variation{
			{ID: "v-small", Name: "Small", Price: 6000},
			{ID: "v-large", Name: "Large", Price: 10000},
		},
		addons: []models.Accompaniment{
			{ID: "a-cheese", Name: "Extra Cheese", Price: 1000},
			{ID: "a-olives", Name: "Olives", Price: 500},
		},
	},
	{
		name:      "Chicken Brochette",
		basePrice: 4500,
		addons: []models.Accompaniment{
			{ID: "a-fries", Name: "Fries", Price: 1500},
			{ID: "a-plantain", Name: "Fried Plantain", Price: 1200},
		},
	},
	{
		name:      "Fanta Citron",
		basePrice: 800,
	},
}

func fakeOrder(restaurantID string) models.Order {
	lineCount := gofakeit.Number(1, 4)
	lines := make([]models.CartLine, 0, lineCount)
	for i := 0; i < lineCount; i++ {
		d := demoMenu[gofakeit.Number(0, len(demoMenu)-1)]
		item := models.MenuItem{ID: uuid.NewString(), Name: d.name, BasePrice: d.basePrice}

		var variation *models.Variation
		if len(d.variations) > 0 && gofakeit.Bool() {
			v := d.variations[gofakeit.Number(0, len(d.variations)-1)]
			variation = &v
		}

		var addons []models.Accompaniment
		for _, a := range d.addons {
			if gofakeit.Bool() {
				addons = append(addons, a)
			}
		}

		lines = append(lines, models.NewCartLine(item, variation, addons))
	}

	order := models.Order{
		OrderUID:      uuid.NewString(),
		RestaurantID:  restaurantID,
		CustomerName:  gofakeit.Name(),
		CustomerPhone: "+2507" + gofakeit.DigitN(8),
		TableLabel:    "T" + strconv.Itoa(gofakeit.Number(1, 20)),
		Lines:         lines,
		Status:        models.OrderStatusReceived,
		CreatedAt:     time.Now(),
	}
	order.GrandTotal = order.CartTotal()
	return order
}

func main() {
	brokerAddress := os.Getenv("KAFKA_BROKER")
	if brokerAddress == "" {
		log.Fatal("переменная окружения KAFKA_BROKER не установлена")
	}

	restaurantID := os.Getenv("RESTAURANT_ID")
	if restaurantID == "" {
		log.Fatal("переменная окружения RESTAURANT_ID не установлена")
	}

	count := 10
	if val := os.Getenv("ORDERS_COUNT"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("плохое значение ORDERS_COUNT: %v", err)
		}
		count = n
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokerAddress),
		Topic:    "orders",
		Balancer: &kafka.LeastBytes{},
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Println("Ошибка закрытия writer:", err)
		}
	}()

	ctx := context.Background()
	for i := 0; i < count; i++ {
		order := fakeOrder(restaurantID)
		payload, err := json.Marshal(order)
		if err != nil {
			log.Printf("ошибка сериализации заказа: %v", err)
			continue
		}

		err = writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(order.OrderUID),
			Value: payload,
		})
		if err != nil {
			log.Printf("ошибка отправки заказа %s: %v", order.OrderUID, err)
			continue
		}
		log.Printf("отправлен заказ %s на сумму %d", order.OrderUID, order.GrandTotal)

		time.Sleep(time.Second)
	}
}
