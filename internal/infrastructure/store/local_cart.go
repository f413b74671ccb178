package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/example/slick-storefront/internal/domain/cart"
)

// LocalCartPrefix namespaces device carts in a KV store.
const LocalCartPrefix = "slick-cart:"

// KV is a device-local key/value store holding one value per key.
type KV interface {
	// Get returns ok=false for a missing key.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RedisKV keeps device values in Redis without expiry.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return data, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return append([]byte(nil), v...), ok, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// LocalCartRepository stores a guest device's whole cart as one JSON array
// under LocalCartPrefix+owner. Each write rewrites the array; mu guards every
// read and read-modify-write of it.
type LocalCartRepository struct {
	kv KV
	mu sync.Mutex
}

func NewLocalCartRepository(kv KV) *LocalCartRepository {
	return &LocalCartRepository{kv: kv}
}

func (r *LocalCartRepository) ListLines(ctx context.Context, owner string) ([]cart.Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(ctx, owner)
}

func (r *LocalCartRepository) GetLine(ctx context.Context, owner string, key cart.Key) (cart.Line, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := r.read(ctx, owner)
	if err != nil {
		return cart.Line{}, false, err
	}
	for _, l := range lines {
		if l.Key() == key {
			return l, true, nil
		}
	}
	return cart.Line{}, false, nil
}

func (r *LocalCartRepository) SaveLine(ctx context.Context, owner string, line cart.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := r.read(ctx, owner)
	if err != nil {
		return err
	}
	replaced := false
	for i, l := range lines {
		if l.Key() == line.Key() {
			lines[i].Quantity = line.Quantity
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, line)
	}
	return r.write(ctx, owner, lines)
}

func (r *LocalCartRepository) DeleteLine(ctx context.Context, owner string, key cart.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := r.read(ctx, owner)
	if err != nil {
		return err
	}
	kept := make([]cart.Line, 0, len(lines))
	for _, l := range lines {
		if l.Key() != key {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(lines) {
		return nil
	}
	return r.write(ctx, owner, kept)
}

func (r *LocalCartRepository) DeleteLines(ctx context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.kv.Delete(ctx, LocalCartPrefix+owner); err != nil {
		return unavailable("clear local cart", err)
	}
	return nil
}

// read treats an unparsable value as an empty cart. Callers hold mu.
func (r *LocalCartRepository) read(ctx context.Context, owner string) ([]cart.Line, error) {
	data, ok, err := r.kv.Get(ctx, LocalCartPrefix+owner)
	if err != nil {
		return nil, unavailable("read local cart", err)
	}
	lines := []cart.Line{}
	if !ok {
		return lines, nil
	}
	if err := json.Unmarshal(data, &lines); err != nil {
		return []cart.Line{}, nil
	}
	return lines, nil
}

func (r *LocalCartRepository) write(ctx context.Context, owner string, lines []cart.Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal local cart: %w", err)
	}
	if err := r.kv.Set(ctx, LocalCartPrefix+owner, data); err != nil {
		return unavailable("write local cart", err)
	}
	return nil
}
