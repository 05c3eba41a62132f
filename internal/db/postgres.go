package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"menu-service/internal/interfaces"
	"menu-service/internal/metrics"
	"menu-service/models"

	_ "github.com/lib/pq"
)

var _ interfaces.Database = (*PostgresDB)(nil)

type PostgresDB struct {
	Conn *sql.DB
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresDB{Conn: db}, nil
}

func (p *PostgresDB) Close() error {
	return p.Conn.Close()
}

func (p *PostgresDB) GetRestaurant(id string) (*models.Restaurant, error) {
	row := p.Conn.QueryRow(`
        SELECT id, name, slug, whatsapp_phone, currency, COALESCE(plan_id::text, ''), active, created_at, updated_at
        FROM restaurants WHERE id = $1`, id)
	return scanRestaurant(row)
}

func (p *PostgresDB) GetRestaurantBySlug(slug string) (*models.Restaurant, error) {
	row := p.Conn.QueryRow(`
        SELECT id, name, slug, whatsapp_phone, currency, COALESCE(plan_id::text, ''), active, created_at, updated_at
        FROM restaurants WHERE slug = $1`, slug)
	return scanRestaurant(row)
}

func scanRestaurant(row *sql.Row) (*models.Restaurant, error) {
	r := &models.Restaurant{}
	err := row.Scan(&r.ID, &r.Name, &r.Slug, &r.WhatsAppPhone, &r.Currency,
		&r.PlanID, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, fmt.Errorf("ресторан не найден: %w", err)
	} else if err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	metrics.DBOperations.WithLabelValues("get", "success").Inc()
	return r, nil
}

// GetMenu собирает полное меню ресторана: группы, позиции и их
// варианты/добавки.
func (p *PostgresDB) GetMenu(restaurantID string) (*models.Menu, error) {
	start := time.Now()
	defer func() {
		metrics.OrderProcessingTime.WithLabelValues("db", "get_menu").Observe(time.Since(start).Seconds())
	}()

	menu := &models.Menu{RestaurantID: restaurantID, Groups: []models.MenuGroup{}, Items: []models.MenuItem{}}

	rows, err := p.Conn.Query(`
        SELECT id, restaurant_id, name, sort_order
        FROM menu_groups WHERE restaurant_id = $1 ORDER BY sort_order, name`, restaurantID)
	if err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	defer closeRows(rows)
	for rows.Next() {
		var g models.MenuGroup
		if err := rows.Scan(&g.ID, &g.RestaurantID, &g.Name, &g.SortOrder); err != nil {
			metrics.DBOperations.WithLabelValues("get", "error").Inc()
			return nil, err
		}
		menu.Groups = append(menu.Groups, g)
	}
	if err := rows.Err(); err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}

	itemRows, err := p.Conn.Query(`
        SELECT id, restaurant_id, COALESCE(group_id::text, ''), name, description, base_price, available, created_at, updated_at
        FROM menu_items WHERE restaurant_id = $1 ORDER BY name`, restaurantID)
	if err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	defer closeRows(itemRows)

	index := map[string]int{}
	for itemRows.Next() {
		var it models.MenuItem
		if err := itemRows.Scan(&it.ID, &it.RestaurantID, &it.GroupID, &it.Name,
			&it.Description, &it.BasePrice, &it.Available, &it.CreatedAt, &it.UpdatedAt); err != nil {
			metrics.DBOperations.WithLabelValues("get", "error").Inc()
			return nil, err
		}
		it.Variations = []models.Variation{}
		it.Accompaniments = []models.Accompaniment{}
		index[it.ID] = len(menu.Items)
		menu.Items = append(menu.Items, it)
	}
	if err := itemRows.Err(); err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}

	varRows, err := p.Conn.Query(`
        SELECT v.id, v.menu_item_id, v.name, v.price
        FROM variations v JOIN menu_items m ON m.id = v.menu_item_id
        WHERE m.restaurant_id = $1 ORDER BY v.price`, restaurantID)
	if err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	defer closeRows(varRows)
	for varRows.Next() {
		var itemID string
		var v models.Variation
		if err := varRows.Scan(&v.ID, &itemID, &v.Name, &v.Price); err != nil {
			metrics.DBOperations.WithLabelValues("get", "error").Inc()
			return nil, err
		}
		if i, ok := index[itemID]; ok {
			menu.Items[i].Variations = append(menu.Items[i].Variations, v)
		}
	}
	if err := varRows.Err(); err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}

	accRows, err := p.Conn.Query(`
        SELECT a.id, a.menu_item_id, a.name, a.price
        FROM accompaniments a JOIN menu_items m ON m.id = a.menu_item_id
        WHERE m.restaurant_id = $1 ORDER BY a.name`, restaurantID)
	if err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	defer closeRows(accRows)
	for accRows.Next() {
		var itemID string
		var a models.Accompaniment
		if err := accRows.Scan(&a.ID, &itemID, &a.Name, &a.Price); err != nil {
			metrics.DBOperations.WithLabelValues("get", "error").Inc()
			return nil, err
		}
		if i, ok := index[itemID]; ok {
			menu.Items[i].Accompaniments = append(menu.Items[i].Accompaniments, a)
		}
	}
	if err := accRows.Err(); err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}

	metrics.DBOperations.WithLabelValues("get", "success").Inc()
	return menu, nil
}

// SaveMenuItem апсертит позицию и полностью перезаписывает её
// варианты и добавки в одной транзакции.
func (p *PostgresDB) SaveMenuItem(item *models.MenuItem) error {
	tx, err := p.Conn.Begin()
	if err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`
        INSERT INTO menu_items(id, restaurant_id, group_id, name, description, base_price, available, created_at, updated_at)
        VALUES($1,$2,NULLIF($3,'')::uuid,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO UPDATE SET
            group_id=EXCLUDED.group_id, name=EXCLUDED.name, description=EXCLUDED.description,
            base_price=EXCLUDED.base_price, available=EXCLUDED.available, updated_at=EXCLUDED.updated_at`,
		item.ID, item.RestaurantID, item.GroupID, item.Name, item.Description,
		item.BasePrice, item.Available, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}

	if _, err = tx.Exec(`DELETE FROM variations WHERE menu_item_id = $1`, item.ID); err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}
	for _, v := range item.Variations {
		_, err = tx.Exec(`INSERT INTO variations(id, menu_item_id, name, price) VALUES($1,$2,$3,$4)`,
			v.ID, item.ID, v.Name, v.Price)
		if err != nil {
			metrics.DBOperations.WithLabelValues("save", "error").Inc()
			return err
		}
	}

	if _, err = tx.Exec(`DELETE FROM accompaniments WHERE menu_item_id = $1`, item.ID); err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}
	for _, a := range item.Accompaniments {
		_, err = tx.Exec(`INSERT INTO accompaniments(id, menu_item_id, name, price) VALUES($1,$2,$3,$4)`,
			a.ID, item.ID, a.Name, a.Price)
		if err != nil {
			metrics.DBOperations.WithLabelValues("save", "error").Inc()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}
	metrics.DBOperations.WithLabelValues("save", "success").Inc()
	return nil
}

func (p *PostgresDB) DeleteMenuItem(restaurantID, itemID string) error {
	res, err := p.Conn.Exec(`DELETE FROM menu_items WHERE id = $1 AND restaurant_id = $2`, itemID, restaurantID)
	if err != nil {
		metrics.DBOperations.WithLabelValues("delete", "error").Inc()
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		metrics.DBOperations.WithLabelValues("delete", "error").Inc()
		return err
	}
	if affected == 0 {
		metrics.DBOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("позиция %s не найдена: %w", itemID, sql.ErrNoRows)
	}
	metrics.DBOperations.WithLabelValues("delete", "success").Inc()
	return nil
}

func (p *PostgresDB) SaveOrder(order *models.Order) error {
	start := time.Now()
	defer func() {
		metrics.OrderProcessingTime.WithLabelValues("db", "save_order").Observe(time.Since(start).Seconds())
	}()

	tx, err := p.Conn.Begin()
	if err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`
        INSERT INTO orders(order_uid, restaurant_id, customer_name, customer_phone, table_label, grand_total, status, created_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (order_uid) DO UPDATE SET status=EXCLUDED.status, grand_total=EXCLUDED.grand_total`,
		order.OrderUID, order.RestaurantID, order.CustomerName, order.CustomerPhone,
		order.TableLabel, order.GrandTotal, order.Status, order.CreatedAt)
	if err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}

	if _, err = tx.Exec(`DELETE FROM order_lines WHERE order_uid = $1`, order.OrderUID); err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}

	for _, line := range order.Lines {
		var variationID, variationName string
		var variationPrice int64
		if line.Variation != nil {
			variationID = line.Variation.ID
			variationName = line.Variation.Name
			variationPrice = line.Variation.Price
		}
		accJSON, err := json.Marshal(line.Accompaniments)
		if err != nil {
			metrics.DBOperations.WithLabelValues("save", "error").Inc()
			return err
		}
		_, err = tx.Exec(`
            INSERT INTO order_lines(line_id, order_uid, item_id, name, base_price, variation_id, variation_name, variation_price, accompaniments, unit_total)
            VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			line.LineID, order.OrderUID, line.ItemID, line.Name, line.BasePrice,
			variationID, variationName, variationPrice, accJSON, line.UnitTotal)
		if err != nil {
			metrics.DBOperations.WithLabelValues("save", "error").Inc()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.DBOperations.WithLabelValues("save", "error").Inc()
		return err
	}
	metrics.DBOperations.WithLabelValues("save", "success").Inc()
	return nil
}

func (p *PostgresDB) GetOrder(orderUID string) (*models.Order, error) {
	start := time.Now()
	defer func() {
		metrics.OrderProcessingTime.WithLabelValues("db", "get_order").Observe(time.Since(start).Seconds())
	}()

	order := &models.Order{}
	row := p.Conn.QueryRow(`
        SELECT order_uid, restaurant_id, customer_name, customer_phone, table_label, grand_total, status, created_at
        FROM orders WHERE order_uid = $1`, orderUID)
	err := row.Scan(&order.OrderUID, &order.RestaurantID, &order.CustomerName,
		&order.CustomerPhone, &order.TableLabel, &order.GrandTotal, &order.Status, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, fmt.Errorf("заказ %s не найден: %w", orderUID, err)
	} else if err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}

	lines, err := p.getOrderLines(orderUID)
	if err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	order.Lines = lines

	metrics.DBOperations.WithLabelValues("get", "success").Inc()
	return order, nil
}

func (p *PostgresDB) getOrderLines(orderUID string) ([]models.CartLine, error) {
	rows, err := p.Conn.Query(`
        SELECT line_id, item_id, name, base_price, variation_id, variation_name, variation_price, accompaniments, unit_total
        FROM order_lines WHERE order_uid = $1`, orderUID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	lines := []models.CartLine{}
	for rows.Next() {
		var line models.CartLine
		var variationID, variationName string
		var variationPrice int64
		var accJSON []byte
		if err := rows.Scan(&line.LineID, &line.ItemID, &line.Name, &line.BasePrice,
			&variationID, &variationName, &variationPrice, &accJSON, &line.UnitTotal); err != nil {
			return nil, err
		}
		if variationID != "" {
			line.Variation = &models.Variation{ID: variationID, Name: variationName, Price: variationPrice}
		}
		if err := json.Unmarshal(accJSON, &line.Accompaniments); err != nil {
			return nil, fmt.Errorf("битые добавки строки %s: %w", line.LineID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при переборе строк заказа %s: %w", orderUID, err)
	}
	return lines, nil
}

// GetRecentOrders возвращает последние заказы для прогрева кэша при
// старте сервиса.
func (p *PostgresDB) GetRecentOrders(limit int) (map[string]*models.Order, error) {
	rows, err := p.Conn.Query(`
        SELECT order_uid FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	defer closeRows(rows)

	uids := []string{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			metrics.DBOperations.WithLabelValues("get", "error").Inc()
			return nil, err
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		metrics.DBOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}

	orders := make(map[string]*models.Order, len(uids))
	for _, uid := range uids {
		order, err := p.GetOrder(uid)
		if err != nil {
			log.Printf("прогрев: заказ %s пропущен: %v", uid, err)
			continue
		}
		orders[uid] = order
	}
	return orders, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("Ошибка закрытия rows: %v", err)
	}
}
