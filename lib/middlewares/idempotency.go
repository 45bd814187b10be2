package middlewares

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/lib/responses"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"

	// held while the first request with a key is being processed
	idempotencyLockTimeout = 10 * time.Second

	idempotencyKeyPrefix  = "idempotency:"
	idempotencyLockPrefix = "lock:"
)

// IdempotencyStore keeps cached responses and in-flight locks.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Save(ctx context.Context, key string, value string, ttl time.Duration) error
}

type RedisIdempotencyStore struct {
	Client *redis.Client
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisIdempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.Client.SetNX(ctx, key, "processing", ttl).Result()
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.Client.Set(ctx, key, value, ttl).Err()
}

type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Idempotency replays the stored response when a money moving request is retried
// with the same Idempotency-Key. Keys are scoped to the authenticated user and the route,
// so the middleware has to run after the token middleware. Only 2xx responses are stored.
func Idempotency(store IdempotencyStore, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idempotencyKey := c.Request().Header.Get(IdempotencyHeader)
			if idempotencyKey == "" {
				return next(c)
			}
			ctx := c.Request().Context()
			scoped := fmt.Sprintf("%v:%s:%s:%s", c.Get("UserID"), c.Request().Method, c.Path(), idempotencyKey)
			cacheKey := idempotencyKeyPrefix + scoped
			lockKey := idempotencyLockPrefix + idempotencyKeyPrefix + scoped

			cached, found, err := store.Get(ctx, cacheKey)
			if err != nil {
				c.Logger().Errorf("Idempotency lookup failed key:%s error: %v", scoped, err)
				return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
			}
			if found {
				var response cachedResponse
				if err := json.Unmarshal([]byte(cached), &response); err == nil {
					c.Response().Header().Set(IdempotencyHitHeader, "true")
					return c.JSONBlob(response.Status, response.Body)
				}
				c.Logger().Errorf("Discarding unreadable idempotency entry key:%s", scoped)
			}

			acquired, err := store.Lock(ctx, lockKey, idempotencyLockTimeout)
			if err != nil {
				c.Logger().Errorf("Idempotency lock failed key:%s error: %v", scoped, err)
				return c.JSON(http.StatusInternalServerError, responses.GeneralServerError)
			}
			if !acquired {
				return c.JSON(http.StatusConflict, echo.Map{
					"error":   true,
					"code":    8,
					"message": "A request with this idempotency key is currently being processed",
				})
			}
			defer func() {
				// the request context may be gone by now
				if err := store.Unlock(context.Background(), lockKey); err != nil {
					c.Logger().Errorf("Failed to release idempotency lock key:%s error: %v", scoped, err)
				}
			}()

			recorder := &responseRecorder{ResponseWriter: c.Response().Writer}
			c.Response().Writer = recorder
			if err := next(c); err != nil {
				return err
			}

			status := c.Response().Status
			if status < 200 || status >= 300 {
				return nil
			}
			payload, err := json.Marshal(cachedResponse{Status: status, Body: recorder.body.Bytes()})
			if err != nil {
				c.Logger().Error(err)
				return nil
			}
			if err := store.Save(context.Background(), cacheKey, string(payload), ttl); err != nil {
				c.Logger().Errorf("Failed to store idempotent response key:%s error: %v", scoped, err)
			}
			return nil
		}
	}
}

type responseRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.(http.Hijacker).Hijack()
}
