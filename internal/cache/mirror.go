package cache

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// FileMirror хранит снимок кэша в одном локальном файле.
type FileMirror struct {
	Path string
}

var _ MirrorStore = (*FileMirror)(nil)

func (f *FileMirror) Save(snapshot []byte) error {
	return os.WriteFile(f.Path, snapshot, 0o644)
}

func (f *FileMirror) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		// первый запуск, снимка еще нет
		return nil, nil
	}
	return data, err
}

// RedisMirror хранит снимок кэша под одним фиксированным ключом redis.
type RedisMirror struct {
	Client *redis.Client
	Key    string
}

var _ MirrorStore = (*RedisMirror)(nil)

const redisMirrorTimeout = 2 * time.Second

func NewRedisMirror(addr, key string) *RedisMirror {
	return &RedisMirror{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Key:    key,
	}
}

func (r *RedisMirror) Save(snapshot []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisMirrorTimeout)
	defer cancel()
	return r.Client.Set(ctx, r.Key, snapshot, 0).Err()
}

func (r *RedisMirror) Load() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisMirrorTimeout)
	defer cancel()
	data, err := r.Client.Get(ctx, r.Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}
