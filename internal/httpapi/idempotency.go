package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	processingMarker  = "PROCESSING"
	processingLockTTL = 10 * time.Second
)

// IdempotencyStore keeps the first response for each Idempotency-Key.
type IdempotencyStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, processingMarker, ttl).Result()
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// A concurrent duplicate gets 409. Store errors fail open.
func Idempotency(st IdempotencyStore, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			cacheKey := "idempotency:" + r.Method + ":" + r.URL.Path + ":" + key
			ctx := r.Context()

			stored, found, err := st.Load(ctx, cacheKey)
			if err != nil {
				logger.Warn("idempotency lookup failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if found {
				replay(w, r, stored)
				return
			}

			acquired, err := st.Reserve(ctx, cacheKey, processingLockTTL)
			if err != nil {
				logger.Warn("idempotency reserve failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				writeError(w, requestID(r), http.StatusConflict, "request_in_progress", "a request with this idempotency key is in progress")
				return
			}

			recorder := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			saveCtx := context.WithoutCancel(ctx)
			if recorder.status >= http.StatusInternalServerError {
				if err := st.Release(saveCtx, cacheKey); err != nil {
					logger.Warn("idempotency release failed", "error", err)
				}
				return
			}
			value, err := json.Marshal(cachedResponse{Status: recorder.status, Body: bytes.TrimSpace(recorder.body.Bytes())})
			if err == nil {
				err = st.Save(saveCtx, cacheKey, value, ttl)
			}
			if err != nil {
				logger.Warn("idempotency save failed", "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, stored []byte) {
	if string(stored) == processingMarker {
		writeError(w, requestID(r), http.StatusConflict, "request_in_progress", "a request with this idempotency key is in progress")
		return
	}
	var cached cachedResponse
	if err := json.Unmarshal(stored, &cached); err != nil || cached.Status == 0 {
		writeError(w, requestID(r), http.StatusConflict, "request_already_processed", "request already processed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency-Hit", "true")
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
}
