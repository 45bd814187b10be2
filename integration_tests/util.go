package integration_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/db"
	"github.com/makbank/bankhub.go/lib"
	"github.com/makbank/bankhub.go/lib/middlewares"
	"github.com/makbank/bankhub.go/lib/responses"
	"github.com/makbank/bankhub.go/lib/service"
	"github.com/makbank/bankhub.go/lib/tokens"
	"github.com/makbank/bankhub.go/lib/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const (
	testPassword   = "correct horse battery staple"
	testAdminToken = "admin-secret"
)

// BankTestServiceInit runs against Postgres when DATABASE_URI is set and against
// the in-memory store otherwise.
func BankTestServiceInit() (svc *service.BankService, err error) {
	dbUri, ok := os.LookupEnv("DATABASE_URI")
	if !ok {
		dbUri = db.MemoryUri
	}
	c := &service.Config{
		DatabaseUri:             dbUri,
		DatabaseMaxConns:        5,
		DatabaseMaxIdleConns:    1,
		DatabaseConnMaxLifetime: 10,
		DatabaseTimeout:         10,
		LedgerMaxRetries:        3,
		JWTSecret:               []byte("SECRET"),
		JWTAccessTokenExpiry:    3600,
		DefaultRateLimit:        1000,
		StrictRateLimit:         1000,
		BurstRateLimit:          1000,
		AdminToken:              testAdminToken,
		AllowAccountCreation:    true,
		SeedBalance:             10000,
		AccountNumberPrefix:     "MAK",
		AccountNumberRetries:    5,
	}

	bankStore, err := db.OpenStore(context.Background(), c)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	logger := lib.Logger(c.LogFilePath)
	svc = &service.BankService{
		Config:      c,
		Store:       bankStore,
		Logger:      logger,
		Notifier:    &service.LogNotifier{Logger: logger},
		EntryPubSub: service.NewPubsub(),
	}
	return svc, nil
}

// newTestEcho assembles the full HTTP surface the way the server binary does.
func newTestEcho(svc *service.BankService, idempotencyStore middlewares.IdempotencyStore) *echo.Echo {
	e := transport.InitEcho(svc.Config, svc.Logger)
	mw := transport.Middlewares{
		Auth:            tokens.Middleware(svc.Config.JWTSecret),
		Log:             transport.CreateLoggingMiddleware(svc.Logger),
		StrictRateLimit: transport.CreateRateLimitMiddleware(svc.Config.StrictRateLimit, svc.Config.BurstRateLimit),
	}
	if idempotencyStore != nil {
		mw.Idempotency = middlewares.Idempotency(idempotencyStore, time.Hour)
	}
	transport.RegisterEndpoints(svc, e, mw)
	return e
}

// emails have to be unique across runs when the suites share a database
func uniqueEmail(name string) string {
	return fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])
}

type testUser struct {
	ID            int64
	Email         string
	AccountNumber string
	Token         string
}

func createUsers(svc *service.BankService, usersToCreate int) (users []testUser, err error) {
	users = []testUser{}
	for i := 0; i < usersToCreate; i++ {
		name := fmt.Sprintf("user%d", i)
		account, err := svc.CreateAccount(context.Background(), name, uniqueEmail(name), testPassword)
		if err != nil {
			return nil, err
		}
		token, err := svc.GenerateToken(account)
		if err != nil {
			return nil, err
		}
		users = append(users, testUser{
			ID:            account.ID,
			Email:         account.Email,
			AccountNumber: account.AccountNumber,
			Token:         token,
		})
	}
	return users, nil
}

type TestSuite struct {
	suite.Suite
	echo *echo.Echo
}

func (suite *TestSuite) doRequest(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, fmt.Sprintf("Bearer %s", token))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	suite.echo.ServeHTTP(rec, req)
	return rec
}

func (suite *TestSuite) checkErrResponse(rec *httptest.ResponseRecorder, status int, code int) *responses.ErrorResponse {
	errorResponse := &responses.ErrorResponse{}
	assert.Equal(suite.T(), status, rec.Code)
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(errorResponse))
	assert.True(suite.T(), errorResponse.Error)
	assert.Equal(suite.T(), code, errorResponse.Code)
	return errorResponse
}

func (suite *TestSuite) decode(rec *httptest.ResponseRecorder, target interface{}) {
	assert.Equal(suite.T(), http.StatusOK, rec.Code, rec.Body.String())
	assert.NoError(suite.T(), json.NewDecoder(rec.Body).Decode(target))
}

// memoryIdempotencyStore stands in for redis.
type memoryIdempotencyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (s *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *memoryIdempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = "1"
	return true, nil
}

func (s *memoryIdempotencyStore) Unlock(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memoryIdempotencyStore) Save(ctx context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
