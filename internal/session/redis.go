package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"paper-reader/internal/chat"
)

const (
	keyPrefix = "reader:"

	// maxUpdateAttempts bounds optimistic WATCH transactions under contention.
	maxUpdateAttempts = 50
)

var ErrConflict = errors.New("session updated concurrently")

// RedisStore keeps sessions in redis as JSON values with a TTL. Keys are namespaced by a
// per-process instance id so sessions never outlive the process that created them.
type RedisStore struct {
	client   *redis.Client
	instance string
	ttl      time.Duration
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr, password string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, instance: uuid.NewString(), ttl: ttl}
}

func (r *RedisStore) key(id uuid.UUID) string {
	return keyPrefix + r.instance + ":session:" + id.String()
}

func (r *RedisStore) Create(ctx context.Context) (Session, error) {
	s := newSession()
	if err := r.write(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return copySession(s), nil
}

// Save replaces the stored session and refreshes its TTL. Unknown or expired ids fail.
func (r *RedisStore) Save(ctx context.Context, s Session) error {
	n, err := r.client.Exists(ctx, r.key(s.ID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	return r.write(ctx, s)
}

// SetDocument replaces the document and keeps the history.
func (r *RedisStore) SetDocument(ctx context.Context, id uuid.UUID, doc Document) error {
	return r.update(ctx, id, func(s *Session) { s.Document = doc })
}

// AppendTurns adds turns to the end of the history and keeps the document.
func (r *RedisStore) AppendTurns(ctx context.Context, id uuid.UUID, turns ...chat.Turn) error {
	return r.update(ctx, id, func(s *Session) { s.History = append(s.History, turns...) })
}

// update applies fn in a WATCH/MULTI transaction on the session key.
func (r *RedisStore) update(ctx context.Context, id uuid.UUID, fn func(*Session)) error {
	key := r.key(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		fn(&s)
		s.UpdatedAt = time.Now().UTC()
		if data, err = json.Marshal(s); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("session %s: %w", id, ErrConflict)
}

func (r *RedisStore) write(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(s.ID), data, r.ttl).Err()
}

// Close removes this instance's sessions and closes the connection.
func (r *RedisStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := r.client.Scan(ctx, 0, keyPrefix+r.instance+":session:*", 0).Iterator()
	pipe := r.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
	}
	var cleanupErr error
	if err := iter.Err(); err != nil {
		cleanupErr = err
	} else if count > 0 {
		_, cleanupErr = pipe.Exec(ctx)
	}
	return errors.Join(cleanupErr, r.client.Close())
}
