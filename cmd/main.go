package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"menu-service/internal/cache"
	"menu-service/internal/db"
	"menu-service/internal/handlers"
	"menu-service/internal/interfaces"
	"menu-service/internal/kafka"
	"menu-service/internal/middleware"
	"menu-service/internal/tracing"

	"github.com/gorilla/mux"
)

func main() {
	kafkaBrokers := []string{"kafka:9092"}
	if val := os.Getenv("KAFKA_BROKERS"); val != "" {
		kafkaBrokers = strings.Split(val, ",")
	}

	postgresDSN := os.Getenv("POSTGRES_DSN")
	if postgresDSN == "" {
		log.Fatal("POSTGRES_DSN is not set")
	}

	tp, err := tracing.InitTracer("menu-service")
	if err != nil {
		log.Printf("трейсинг недоступен: %v", err)
	} else {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Printf("ошибка остановки трейсинга: %v", err)
			}
		}()
	}

	var dbConn interfaces.Database
	var cacheStore interfaces.Cache

	dbConn, err = db.NewPostgresDB(postgresDSN)
	if err != nil {
		log.Fatal("Не удалось подключиться к базе данных:", err)
	}
	defer dbConn.Close()

	// кэш с ttl 5 минут, зеркало выбирается переменной окружения:
	// CACHE_MIRROR=file:/var/lib/menu-service/cache.json
	// CACHE_MIRROR=redis:redis:6379
	store := cache.New[json.RawMessage](5*time.Minute, newMirror(os.Getenv("CACHE_MIRROR")))
	defer store.Close()
	cacheStore = store

	// прогрев кэша последними заказами из БД
	log.Println("Прогрев кэша из базы данных...")
	orders, err := dbConn.GetRecentOrders(1000)
	if err != nil {
		log.Printf("Прогрев кэша не удался: %v", err)
	} else {
		warm := make(map[string]json.RawMessage, len(orders))
		for uid, order := range orders {
			payload, err := json.Marshal(order)
			if err != nil {
				continue
			}
			warm["order:"+uid] = payload
		}
		cacheStore.BulkSet(warm)
		log.Printf("Кэш прогрет %d заказами", len(warm))
	}

	// Kafka Consumer (читает заказы и сохраняет в БД + кэш)
	consumer := kafka.NewConsumer(kafka.Config{
		Brokers:  kafkaBrokers,
		Topic:    "orders",
		GroupID:  "menu_service_group",
		DLQTopic: "orders_dlq",
	}, dbConn, cacheStore)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumer.Run(ctx)

	handler := handlers.NewHandler(cacheStore, dbConn, tracing.GetTracer("handlers"))

	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)
	r.HandleFunc("/api/restaurants/{id}", handler.GetRestaurantHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/restaurants/{id}/menu", handler.GetMenuHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/restaurants/{id}/menu/items", handler.SaveMenuItemHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/restaurants/{id}/menu/items/{itemID}", handler.SaveMenuItemHandler).Methods(http.MethodPut)
	r.HandleFunc("/api/restaurants/{id}/menu/items/{itemID}", handler.DeleteMenuItemHandler).Methods(http.MethodDelete)
	r.HandleFunc("/m/{slug}", handler.GetPublicMenuHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/orders", handler.CreateOrderHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/orders/{uid}", handler.GetOrderHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/cache/stats", handler.CacheStatsHandler).Methods(http.MethodGet)
	r.HandleFunc("/metrics", handler.MetricsHandler)

	srv := &http.Server{
		Addr:         ":8081",
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("Запуск сервера на :8081")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка сервера: %v", err)
		}
	}()

	// Корректное завершение по SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("отключение сервера...")

	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()
	if err := srv.Shutdown(ctxTimeout); err != nil {
		log.Fatalf("Сервер принудительно отключен: %v", err)
	}
}

// newMirror разбирает CACHE_MIRROR. При пустом значении кэш живёт без зеркала.
func newMirror(val string) cache.MirrorStore {
	switch {
	case val == "":
		return nil
	case strings.HasPrefix(val, "file:"):
		return &cache.FileMirror{Path: strings.TrimPrefix(val, "file:")}
	case strings.HasPrefix(val, "redis:"):
		return cache.NewRedisMirror(strings.TrimPrefix(val, "redis:"), "menu-service:cache")
	default:
		log.Printf("неизвестное зеркало кэша %q, работаем без зеркала", val)
		return nil
	}
}
