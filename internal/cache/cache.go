package cache

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"menu-service/internal/metrics"
)

// MirrorStore это необязательное персистентное зеркало кэша. Кэш пишет в
// него весь снимок целиком под одним фиксированным ключом. Любая ошибка
// зеркала глотается: кэш это оптимизация, а не источник истины.
type MirrorStore interface {
	Save(snapshot []byte) error
	Load() ([]byte, error)
}

type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]item[V]
	defaultTTL time.Duration
	mirror     MirrorStore
	done       chan struct{}
}

type item[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (it item[V]) expired(now time.Time) bool {
	return now.Sub(it.storedAt) >= it.ttl
}

// EntryStat описывает одну живую запись для диагностики.
type EntryStat struct {
	Key          string `json:"key"`
	AgeSeconds   int64  `json:"age_seconds"`
	RemainingTTL int64  `json:"remaining_ttl_seconds"`
}

type Stats struct {
	TotalEntries int         `json:"total_entries"`
	Entries      []EntryStat `json:"entries"`
}

// New создаёт кэш с TTL по умолчанию. mirror может быть nil, тогда кэш
// живёт только в памяти. Битый или отсутствующий снимок зеркала
// трактуется как пустой кэш.
func New[V any](defaultTTL time.Duration, mirror MirrorStore) *Cache[V] {
	c := &Cache[V]{
		entries:    make(map[string]item[V]),
		defaultTTL: defaultTTL,
		mirror:     mirror,
		done:       make(chan struct{}),
	}
	c.restore()
	go c.sweep()
	return c
}

// Get возвращает значение, если запись есть и не протухла. Промах это
// нормальный результат, не ошибка. Чтение НЕ продлевает TTL.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.entries[key]
	if ok && !it.expired(time.Now()) {
		metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
		return it.value, true
	}

	metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
	var zero V
	return zero, false
}

// Set вставляет или перезаписывает запись с TTL по умолчанию,
// storedAt сбрасывается на текущий момент.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL то же, что Set, но с явным TTL. ttl <= 0 означает TTL по
// умолчанию.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = item[V]{value: value, storedAt: time.Now(), ttl: ttl}
	metrics.CacheOperations.WithLabelValues("set", "success").Inc()
	c.persist()
}

// BulkSet делает массовую загрузку, используется для прогрева кэша из БД при
// старте. TTL по умолчанию.
func (c *Cache[V]) BulkSet(values map[string]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, value := range values {
		c.entries[key] = item[V]{value: value, storedAt: now, ttl: c.defaultTTL}
	}
	c.persist()
}

// Invalidate без аргументов очищает кэш целиком. С аргументами удаляет
// записи, ключ которых начинается с любого из переданных префиксов:
// строгое сравнение префикса строки, не подстрока и не glob.
func (c *Cache[V]) Invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(prefixes) == 0 {
		c.entries = make(map[string]item[V])
	} else {
		for key := range c.entries {
			for _, p := range prefixes {
				if strings.HasPrefix(key, p) {
					delete(c.entries, key)
					break
				}
			}
		}
	}
	metrics.CacheOperations.WithLabelValues("invalidate", "success").Inc()
	c.persist()
}

// Stats попутно выметает протухшие записи и отчитывается только о живых.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	st := Stats{Entries: []EntryStat{}}
	for key, it := range c.entries {
		if it.expired(now) {
			delete(c.entries, key)
			continue
		}
		age := now.Sub(it.storedAt)
		st.Entries = append(st.Entries, EntryStat{
			Key:          key,
			AgeSeconds:   int64(age.Seconds()),
			RemainingTTL: int64((it.ttl - age).Seconds()),
		})
	}
	st.TotalEntries = len(st.Entries)
	return st
}

// Close останавливает фоновую уборку.
func (c *Cache[V]) Close() {
	close(c.done)
}

func (c *Cache[V]) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, it := range c.entries {
				if it.expired(now) {
					delete(c.entries, key)
				}
			}
			c.persist()
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// Формат снимка зеркала: одна JSON-карта ключ -> запись.
type snapshotEntry[V any] struct {
	Value      V         `json:"value"`
	StoredAt   time.Time `json:"stored_at"`
	TTLSeconds int64     `json:"ttl_seconds"`
}

// persist вызывается под записывающей блокировкой. Ошибки зеркала
// логируются и считаются, наружу не выходят.
func (c *Cache[V]) persist() {
	if c.mirror == nil {
		return
	}
	snapshot := make(map[string]snapshotEntry[V], len(c.entries))
	for key, it := range c.entries {
		snapshot[key] = snapshotEntry[V]{
			Value:      it.value,
			StoredAt:   it.storedAt,
			TTLSeconds: int64(it.ttl.Seconds()),
		}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		metrics.CacheOperations.WithLabelValues("mirror", "error").Inc()
		log.Printf("ошибка сериализации снимка кэша: %v", err)
		return
	}
	if err := c.mirror.Save(data); err != nil {
		metrics.CacheOperations.WithLabelValues("mirror", "error").Inc()
		log.Printf("ошибка записи зеркала кэша: %v", err)
	}
}

func (c *Cache[V]) restore() {
	if c.mirror == nil {
		return
	}
	data, err := c.mirror.Load()
	if err != nil || len(data) == 0 {
		if err != nil {
			metrics.CacheOperations.WithLabelValues("mirror", "error").Inc()
			log.Printf("зеркало кэша недоступно, стартуем пустыми: %v", err)
		}
		return
	}
	var snapshot map[string]snapshotEntry[V]
	if err := json.Unmarshal(data, &snapshot); err != nil {
		metrics.CacheOperations.WithLabelValues("mirror", "error").Inc()
		log.Printf("битый снимок зеркала кэша, стартуем пустыми: %v", err)
		return
	}
	now := time.Now()
	for key, se := range snapshot {
		it := item[V]{
			value:    se.Value,
			storedAt: se.StoredAt,
			ttl:      time.Duration(se.TTLSeconds) * time.Second,
		}
		if !it.expired(now) {
			c.entries[key] = it
		}
	}
}
