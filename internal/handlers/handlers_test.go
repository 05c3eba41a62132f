package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"menu-service/internal/mocks"
	"menu-service/models"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func newTestHandler(t *testing.T) (*Handler, *mocks.MockCache, *mocks.MockDatabase) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockDB := mocks.NewMockDatabase(ctrl)
	mockCache := mocks.NewMockCache(ctrl)
	h := NewHandler(mockCache, mockDB, otel.Tracer("test"))
	return h, mockCache, mockDB
}

func testRestaurant() *models.Restaurant {
	return &models.Restaurant{
		ID:            "7b6e1a3e-9d0a-4a83-9a51-0e5c3a9a2f11",
		Name:          "Chez Lando",
		Slug:          "chez-lando",
		WhatsAppPhone: "+250 788 000 000",
		Currency:      "RWF",
		Active:        true,
	}
}

func TestGetRestaurantHandler_FoundInCache(t *testing.T) {
	h, mockCache, _ := newTestHandler(t)

	restaurant := testRestaurant()
	payload, _ := json.Marshal(restaurant)
	mockCache.EXPECT().Get("restaurant:" + restaurant.ID).Return(json.RawMessage(payload), true)

	req := httptest.NewRequest("GET", "/api/restaurants/"+restaurant.ID, nil)
	req = mux.SetURLVars(req, map[string]string{"id": restaurant.ID})
	w := httptest.NewRecorder()

	h.GetRestaurantHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.Restaurant
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Chez Lando", response.Name)
}

func TestGetMenuHandler_MissGoesToDBAndWarmsCache(t *testing.T) {
	h, mockCache, mockDB := newTestHandler(t)

	restaurantID := uuid.NewString()
	menu := &models.Menu{
		RestaurantID: restaurantID,
		Groups:       []models.MenuGroup{{ID: uuid.NewString(), RestaurantID: restaurantID, Name: "Mains"}},
		Items:        []models.MenuItem{{ID: uuid.NewString(), RestaurantID: restaurantID, Name: "Pizza", BasePrice: 8000}},
	}

	mockCache.EXPECT().Get("menu:"+restaurantID).Return(nil, false)
	mockDB.EXPECT().GetMenu(restaurantID).Return(menu, nil)
	mockCache.EXPECT().Set("menu:"+restaurantID, gomock.Any())

	req := httptest.NewRequest("GET", "/api/restaurants/"+restaurantID+"/menu", nil)
	req = mux.SetURLVars(req, map[string]string{"id": restaurantID})
	w := httptest.NewRecorder()

	h.GetMenuHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.Menu
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Len(t, response.Items, 1)
	assert.Equal(t, "Pizza", response.Items[0].Name)
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	h, mockCache, mockDB := newTestHandler(t)

	mockCache.EXPECT().Get("order:missing123").Return(nil, false)
	mockDB.EXPECT().GetOrder("missing123").Return(nil, fmt.Errorf("заказ не найден: %w", sql.ErrNoRows))

	req := httptest.NewRequest("GET", "/api/orders/missing123", nil)
	req = mux.SetURLVars(req, map[string]string{"uid": "missing123"})
	w := httptest.NewRecorder()

	h.GetOrderHandler(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderHandler_DBError(t *testing.T) {
	h, mockCache, mockDB := newTestHandler(t)

	mockCache.EXPECT().Get("order:abc12").Return(nil, false)
	mockDB.EXPECT().GetOrder("abc12").Return(nil, errors.New("connection refused"))

	req := httptest.NewRequest("GET", "/api/orders/abc12", nil)
	req = mux.SetURLVars(req, map[string]string{"uid": "abc12"})
	w := httptest.NewRecorder()

	h.GetOrderHandler(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func createOrderBody(t *testing.T, restaurantID string) *bytes.Buffer {
	item := models.MenuItem{ID: uuid.NewString(), Name: "Pizza", BasePrice: 8000}
	order := models.Order{
		RestaurantID: restaurantID,
		CustomerName: "Alice",
		Lines: []models.CartLine{
			models.NewCartLine(item, nil, []models.Accompaniment{{ID: "a-1", Name: "Olives", Price: 500}}),
			models.NewCartLine(item, nil, []models.Accompaniment{{ID: "a-1", Name: "Olives", Price: 500}}),
		},
		CreatedAt: time.Now(),
	}

	body, err := json.Marshal(order)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestCreateOrderHandler_Success(t *testing.T) {
	h, mockCache, mockDB := newTestHandler(t)

	restaurant := testRestaurant()
	mockDB.EXPECT().GetRestaurant(restaurant.ID).Return(restaurant, nil)
	mockDB.EXPECT().SaveOrder(gomock.Any()).Return(nil)
	mockCache.EXPECT().Set(gomock.Any(), gomock.Any())

	req := httptest.NewRequest("POST", "/api/orders", createOrderBody(t, restaurant.ID))
	w := httptest.NewRecorder()

	h.CreateOrderHandler(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "created", response["status"])
	assert.NotEmpty(t, response["order_uid"])

	// ссылка ведёт на wa.me с номером из одних цифр и декодируемым текстом
	u, err := url.Parse(response["whatsapp_url"])
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/250788000000", u.Path)
	text := u.Query().Get("text")
	assert.Contains(t, text, "Chez Lando")
	assert.Contains(t, text, "2x Pizza + Olives - 17000 RWF")
	assert.Contains(t, text, "Total: 17000 RWF")
}

func TestCreateOrderHandler_NoWhatsAppPhone(t *testing.T) {
	h, _, mockDB := newTestHandler(t)

	restaurant := testRestaurant()
	restaurant.WhatsAppPhone = ""
	mockDB.EXPECT().GetRestaurant(restaurant.ID).Return(restaurant, nil)

	req := httptest.NewRequest("POST", "/api/orders", createOrderBody(t, restaurant.ID))
	w := httptest.NewRecorder()

	h.CreateOrderHandler(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "WhatsApp")
}

func TestCreateOrderHandler_ValidationError(t *testing.T) {
	h, _, _ := newTestHandler(t)

	// без имени клиента заказ не принимается
	body := strings.NewReader(`{"restaurant_id":"` + uuid.NewString() + `","lines":[]}`)
	req := httptest.NewRequest("POST", "/api/orders", body)
	w := httptest.NewRecorder()

	h.CreateOrderHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderHandler_BadJSON(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest("POST", "/api/orders", strings.NewReader("{не json"))
	w := httptest.NewRecorder()

	h.CreateOrderHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveMenuItemHandler_InvalidatesMenuCache(t *testing.T) {
	h, mockCache, mockDB := newTestHandler(t)

	restaurantID := uuid.NewString()
	item := models.MenuItem{
		Name:      "Brochette",
		BasePrice: 4500,
		Available: true,
	}
	body, _ := json.Marshal(item)

	mockDB.EXPECT().SaveMenuItem(gomock.Any()).Return(nil)
	mockCache.EXPECT().Invalidate("menu:" + restaurantID)

	req := httptest.NewRequest("POST", "/api/restaurants/"+restaurantID+"/menu/items", bytes.NewBuffer(body))
	req = mux.SetURLVars(req, map[string]string{"id": restaurantID})
	w := httptest.NewRecorder()

	h.SaveMenuItemHandler(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "saved", response["status"])
	assert.NotEmpty(t, response["item_id"])
}

func TestDeleteMenuItemHandler_NotFound(t *testing.T) {
	h, _, mockDB := newTestHandler(t)

	restaurantID := uuid.NewString()
	itemID := uuid.NewString()
	mockDB.EXPECT().DeleteMenuItem(restaurantID, itemID).
		Return(fmt.Errorf("позиция не найдена: %w", sql.ErrNoRows))

	req := httptest.NewRequest("DELETE", "/api/restaurants/"+restaurantID+"/menu/items/"+itemID, nil)
	req = mux.SetURLVars(req, map[string]string{"id": restaurantID, "itemID": itemID})
	w := httptest.NewRecorder()

	h.DeleteMenuItemHandler(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
