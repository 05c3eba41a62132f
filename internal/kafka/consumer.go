package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"menu-service/internal/interfaces"
	"menu-service/internal/metrics"
	"menu-service/internal/validation"
	"menu-service/models"

	"github.com/segmentio/kafka-go"
)

// Config задаёт параметры консюмера заказов. Нулевые значения ретраев
// заменяются дефолтами в NewConsumer.
type Config struct {
	Brokers    []string
	Topic      string
	GroupID    string
	DLQTopic   string
	MaxRetries int
	RetryDelay time.Duration
	// Backoff: "fixed" или "exponential"
	Backoff string
}

// Consumer читает события заказов из топика, валидирует их и сохраняет
// в БД и кэш. Невалидные сообщения ретраить бессмысленно, они сразу
// уходят в DLQ; остальные ошибки ретраим с бэкоффом.
type Consumer struct {
	reader *kafka.Reader
	dlq    *kafka.Writer
	db     interfaces.Database
	cache  interfaces.Cache
	cfg    Config
}

var errInvalidOrder = errors.New("невалидный заказ")

func NewConsumer(cfg Config, db interfaces.Database, cache interfaces.Cache) *Consumer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Backoff == "" {
		cfg.Backoff = "exponential"
	}

	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			CommitInterval: 0,
		}),
		dlq: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.DLQTopic,
			Balancer: &kafka.LeastBytes{},
		},
		db:    db,
		cache: cache,
		cfg:   cfg,
	}
}

// Run крутит цикл выборки до отмены контекста. Сообщение коммитится
// только после успешной обработки либо после отправки в DLQ.
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Println("консюмер остановился по контексту")
				return
			}
			log.Println("Ошибка выборки Kafka:", err)
			continue
		}

		switch err := c.processWithRetry(ctx, m); {
		case err == nil:
			c.commit(ctx, m)
		case ctx.Err() != nil:
			return
		default:
			log.Printf("Сообщение не обработано: %v", err)
			metrics.OrdersProcessed.WithLabelValues("kafka", "error").Inc()
			c.sendToDLQ(ctx, m.Value)
			c.commit(ctx, m)
		}
	}
}

func (c *Consumer) processWithRetry(ctx context.Context, m kafka.Message) error {
	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		err = c.processMessage(m)
		if err == nil {
			return nil
		}

		// невалидный заказ не чинится повтором
		if errors.Is(err, errInvalidOrder) {
			metrics.OrdersProcessed.WithLabelValues("kafka", "validation_error").Inc()
			return err
		}

		if attempt == c.cfg.MaxRetries {
			break
		}

		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
		log.Printf("повтор обработки (попытка %d/%d), прошлая ошибка: %v", attempt+2, c.cfg.MaxRetries+1, err)
	}
	return fmt.Errorf("исчерпаны ретраи: %w", err)
}

func (c *Consumer) backoff(attempt int) time.Duration {
	if c.cfg.Backoff == "exponential" {
		return time.Duration(float64(c.cfg.RetryDelay) * math.Pow(2, float64(attempt)))
	}
	return c.cfg.RetryDelay
}

func (c *Consumer) processMessage(m kafka.Message) error {
	start := time.Now()
	defer func() {
		metrics.OrderProcessingTime.WithLabelValues("kafka", "process").Observe(time.Since(start).Seconds())
	}()

	var order models.Order
	if err := json.Unmarshal(m.Value, &order); err != nil {
		return fmt.Errorf("%w: ошибка при преобразовании JSON: %v", errInvalidOrder, err)
	}

	if err := validation.ValidateOrder(&order); err != nil {
		return fmt.Errorf("%w: %v", errInvalidOrder, err)
	}

	if err := c.db.SaveOrder(&order); err != nil {
		return fmt.Errorf("ошибка сохранения в БД: %w", err)
	}

	payload, err := json.Marshal(&order)
	if err != nil {
		return fmt.Errorf("ошибка сериализации заказа: %w", err)
	}
	c.cache.Set("order:"+order.OrderUID, payload)

	metrics.OrdersProcessed.WithLabelValues("kafka", "success").Inc()
	log.Printf("Заказ %s успешно обработан и сохранен", order.OrderUID)
	return nil
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Println("Ошибка коммита:", err)
	}
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg []byte) {
	err := c.dlq.WriteMessages(ctx, kafka.Message{Value: msg})
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			log.Println("контекст отменён, выйдем")
		case errors.Is(err, context.DeadlineExceeded):
			log.Println("таймаут при записи в DLQ")
		default:
			log.Println("не удалось отправить в DLQ:", err)
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Println("Ошибка закрытия reader:", err)
	}
	if err := c.dlq.Close(); err != nil {
		log.Println("Ошибка закрытия DLQ writer:", err)
	}
}
