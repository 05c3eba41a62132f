package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"menu-service/internal/compose"
	"menu-service/internal/interfaces"
	"menu-service/internal/metrics"
	"menu-service/internal/validation"
	"menu-service/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	Cache  interfaces.Cache
	DB     interfaces.Database
	Tracer trace.Tracer
}

func NewHandler(c interfaces.Cache, db interfaces.Database, tracer trace.Tracer) *Handler {
	return &Handler{
		Cache:  c,
		DB:     db,
		Tracer: tracer,
	}
}

// cachedRead реализует общий путь чтения: кэш, затем БД, затем прогрев кэша.
// Кэшируется уже сериализованный JSON ответа.
func (h *Handler) cachedRead(key string, fetch func() (any, error)) (json.RawMessage, error) {
	if payload, ok := h.Cache.Get(key); ok {
		return payload, nil
	}

	value, err := fetch()
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	h.Cache.Set(key, payload)
	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		log.Printf("ошибка записи ответа: %v", err)
	}
}

func (h *Handler) GetRestaurantHandler(w http.ResponseWriter, r *http.Request) {
	_, span := h.Tracer.Start(r.Context(), "http.get_restaurant")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("restaurant.id", id))

	payload, err := h.cachedRead("restaurant:"+id, func() (any, error) {
		return h.DB.GetRestaurant(id)
	})
	if err != nil {
		h.readError(w, span, err, "ресторан не найден")
		return
	}

	writeJSON(w, http.StatusOK, payload)
	span.SetStatus(codes.Ok, "ресторан получен")
}

func (h *Handler) GetMenuHandler(w http.ResponseWriter, r *http.Request) {
	_, span := h.Tracer.Start(r.Context(), "http.get_menu")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("restaurant.id", id))

	payload, err := h.cachedRead("menu:"+id, func() (any, error) {
		return h.DB.GetMenu(id)
	})
	if err != nil {
		h.readError(w, span, err, "меню не найдено")
		return
	}

	writeJSON(w, http.StatusOK, payload)
	span.SetStatus(codes.Ok, "меню получено")
}

// GetPublicMenuHandler отдаёт публичное меню по slug ресторана; сюда ведут
// QR-коды на столиках.
func (h *Handler) GetPublicMenuHandler(w http.ResponseWriter, r *http.Request) {
	_, span := h.Tracer.Start(r.Context(), "http.get_public_menu")
	defer span.End()

	slug := mux.Vars(r)["slug"]
	span.SetAttributes(attribute.String("restaurant.slug", slug))

	restaurantPayload, err := h.cachedRead("restaurant_slug:"+slug, func() (any, error) {
		return h.DB.GetRestaurantBySlug(slug)
	})
	if err != nil {
		h.readError(w, span, err, "ресторан не найден")
		return
	}

	var restaurant models.Restaurant
	if err := json.Unmarshal(restaurantPayload, &restaurant); err != nil {
		h.readError(w, span, err, "")
		return
	}

	menuPayload, err := h.cachedRead("menu:"+restaurant.ID, func() (any, error) {
		return h.DB.GetMenu(restaurant.ID)
	})
	if err != nil {
		h.readError(w, span, err, "меню не найдено")
		return
	}

	response, err := json.Marshal(map[string]json.RawMessage{
		"restaurant": restaurantPayload,
		"menu":       menuPayload,
	})
	if err != nil {
		h.readError(w, span, err, "")
		return
	}

	writeJSON(w, http.StatusOK, response)
	span.SetStatus(codes.Ok, "публичное меню получено")
}

func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	_, span := h.Tracer.Start(r.Context(), "http.get_order")
	defer span.End()

	orderUID := mux.Vars(r)["uid"]
	span.SetAttributes(attribute.String("order.uid", orderUID))

	payload, err := h.cachedRead("order:"+orderUID, func() (any, error) {
		return h.DB.GetOrder(orderUID)
	})
	if err != nil {
		h.readError(w, span, err, "заказ не найден")
		return
	}

	writeJSON(w, http.StatusOK, payload)
	span.SetStatus(codes.Ok, "заказ получен")
}

func (h *Handler) readError(w http.ResponseWriter, span trace.Span, err error, notFoundMsg string) {
	span.RecordError(err)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, notFoundMsg, http.StatusNotFound)
		span.SetStatus(codes.Error, notFoundMsg)
		return
	}
	errMsg := "внутренняя ошибка сервера"
	http.Error(w, errMsg, http.StatusInternalServerError)
	span.SetStatus(codes.Error, errMsg)
}

// SaveMenuItemHandler создаёт или обновляет позицию меню и сбрасывает
// кэш меню ресторана.
func (h *Handler) SaveMenuItemHandler(w http.ResponseWriter, r *http.Request) {
	_, span := h.Tracer.Start(r.Context(), "http.save_menu_item")
	defer span.End()

	restaurantID := mux.Vars(r)["id"]

	var item models.MenuItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		errMsg := "Плохой JSON"
		http.Error(w, errMsg, http.StatusBadRequest)
		span.RecordError(err)
		span.SetStatus(codes.Error, errMsg)
		return
	}

	item.RestaurantID = restaurantID
	if item.ID == "" {
		item.ID = uuid.NewString()
		item.CreatedAt = time.Now()
	}
	if itemID := mux.Vars(r)["itemID"]; itemID != "" {
		item.ID = itemID
	}
	item.UpdatedAt = time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = item.UpdatedAt
	}

	if err := validation.ValidateMenuItem(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		span.RecordError(err)
		span.SetStatus(codes.Error, "валидация не пройдена")
		return
	}

	if err := h.DB.SaveMenuItem(&item); err != nil {
		metrics.MenuUpdates.WithLabelValues("save", "error").Inc()
		errMsg := "внутренняя ошибка сервера"
		http.Error(w, errMsg, http.StatusInternalServerError)
		span.RecordError(err)
		span.SetStatus(codes.Error, errMsg)
		return
	}
	metrics.MenuUpdates.WithLabelValues("save", "success").Inc()

	// позиция изменилась, кэшированное меню ресторана больше не верно
	h.Cache.Invalidate("menu:" + restaurantID)

	response, _ := json.Marshal(map[string]string{
		"status":  "saved",
		"item_id": item.ID,
	})
	writeJSON(w, http.StatusOK, response)
	span.SetAttributes(attribute.String("menu_item.id", item.ID))
	span.SetStatus(codes.Ok, "позиция сохранена")
}

func (h *Handler) DeleteMenuItemHandler(w http.ResponseWriter, r *http.Request) {
	_, span := h.Tracer.Start(r.Context(), "http.delete_menu_item")
	defer span.End()

	vars := mux.Vars(r)
	restaurantID, itemID := vars["id"], vars["itemID"]
	span.SetAttributes(attribute.String("menu_item.id", itemID))

	if err := h.DB.DeleteMenuItem(restaurantID, itemID); err != nil {
		metrics.MenuUpdates.WithLabelValues("delete", "error").Inc()
		h.readError(w, span, err, "позиция не найдена")
		return
	}
	metrics.MenuUpdates.WithLabelValues("delete", "success").Inc()

	h.Cache.Invalidate("menu:" + restaurantID)

	response, _ := json.Marshal(map[string]string{"status": "deleted"})
	writeJSON(w, http.StatusOK, response)
	span.SetStatus(codes.Ok, "позиция удалена")
}

// CreateOrderHandler принимает заказ, считает сводку через композер,
// сохраняет заказ и возвращает ссылку wa.me для отправки сводки
// ресторану.
func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	_, span := h.Tracer.Start(r.Context(), "http.create_order")
	defer span.End()

	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		errMsg := "Плохой JSON"
		http.Error(w, errMsg, http.StatusBadRequest)
		span.RecordError(err)
		span.SetStatus(codes.Error, errMsg)
		return
	}

	if order.OrderUID == "" {
		order.OrderUID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusReceived
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if order.GrandTotal == 0 {
		order.GrandTotal = order.CartTotal()
	}

	if err := validation.ValidateOrderForAPI(&order); err != nil {
		metrics.OrdersProcessed.WithLabelValues("api", "validation_error").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
		span.RecordError(err)
		span.SetStatus(codes.Error, "валидация не пройдена")
		return
	}

	restaurant, err := h.DB.GetRestaurant(order.RestaurantID)
	if err != nil {
		h.readError(w, span, err, "ресторан не найден")
		metrics.OrdersProcessed.WithLabelValues("api", "error").Inc()
		return
	}

	grouped := compose.GroupCart(order.Lines)
	message := compose.FormatMessage(restaurant.Name, order.CustomerName, grouped, order.GrandTotal, restaurant.Currency)

	link, err := compose.BuildDeepLink(restaurant.WhatsAppPhone, message)
	if err != nil {
		if errors.Is(err, compose.ErrEmptyPhone) {
			metrics.WhatsAppLinksBuilt.WithLabelValues("no_phone").Inc()
			errMsg := "нельзя отправить заказ: у ресторана не указан номер WhatsApp"
			http.Error(w, errMsg, http.StatusUnprocessableEntity)
			span.SetStatus(codes.Error, errMsg)
			return
		}
		h.readError(w, span, err, "")
		return
	}
	metrics.WhatsAppLinksBuilt.WithLabelValues("success").Inc()

	if err := h.DB.SaveOrder(&order); err != nil {
		metrics.OrdersProcessed.WithLabelValues("api", "error").Inc()
		errMsg := "внутренняя ошибка сервера"
		http.Error(w, errMsg, http.StatusInternalServerError)
		span.RecordError(err)
		span.SetStatus(codes.Error, errMsg)
		return
	}

	if payload, err := json.Marshal(&order); err == nil {
		h.Cache.Set("order:"+order.OrderUID, payload)
	}

	metrics.OrdersProcessed.WithLabelValues("api", "success").Inc()

	response, _ := json.Marshal(map[string]string{
		"status":       "created",
		"order_uid":    order.OrderUID,
		"whatsapp_url": link,
	})
	writeJSON(w, http.StatusCreated, response)
	span.SetAttributes(attribute.String("order.uid", order.OrderUID))
	span.SetStatus(codes.Ok, "заказ создан")
}

// CacheStatsHandler отдаёт диагностику кэша для админки.
func (h *Handler) CacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats := h.Cache.Stats()
	payload, err := json.Marshal(stats)
	if err != nil {
		http.Error(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

var promHandler = promhttp.Handler()

func (h *Handler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	promHandler.ServeHTTP(w, r)
}
