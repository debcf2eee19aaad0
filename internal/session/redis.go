package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis as JSON documents under
// "<prefix>:session:<id>". The TTL is refreshed on every save, so idle
// sessions expire on the server side.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "storefront"
	TTL      time.Duration // 0 = no expiry
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	return NewRedisStoreFromClient(client, opts.Prefix, opts.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "storefront"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + ":session:" + id
}

// Load fetches and decodes the session, returning a fresh state when the key is absent.
func (r *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrNoSessionID
	}
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	if st.Log == nil {
		st.Log = []TurnRecord{}
	}
	return &st, nil
}

// Save encodes st and writes it with the store TTL.
func (r *RedisStore) Save(ctx context.Context, st *State) error {
	if st == nil || st.ID == "" {
		return ErrNoSessionID
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", st.ID, err)
	}
	if err := r.client.Set(ctx, r.key(st.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving session %s: %w", st.ID, err)
	}
	return nil
}

// Reset overwrites the session with an empty state.
func (r *RedisStore) Reset(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrNoSessionID
	}
	st := New(id)
	if err := r.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes the session key.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
