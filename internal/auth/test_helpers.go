package auth

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/graybeam/storefront-backend/internal/cart"
	"github.com/graybeam/storefront-backend/pkg/auth/session"
	"github.com/graybeam/storefront-backend/pkg/config"
	"github.com/graybeam/storefront-backend/pkg/db"
	"github.com/graybeam/storefront-backend/pkg/db/models"
	"github.com/graybeam/storefront-backend/pkg/logger"
)

func newTestDB(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn}, true, testLogger())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return client
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "auth-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 15,
	}
}

// memorySessions is an in-process stand-in for the Redis session manager.
type memorySessions struct {
	tokens map[string]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{tokens: map[string]string{}}
}

func (m *memorySessions) Generate(ctx context.Context, accessID string) (string, error) {
	token := uuid.NewString()
	m.tokens[accessID] = token
	return token, nil
}

func (m *memorySessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := m.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.tokens, oldAccessID)
	newAccessID := session.NewAccessID()
	newToken := uuid.NewString()
	m.tokens[newAccessID] = newToken
	return newAccessID, newToken, nil
}

func (m *memorySessions) Revoke(ctx context.Context, accessID string) error {
	delete(m.tokens, accessID)
	return nil
}

// stubCartMerger records merge calls and can be primed to fail.
type stubCartMerger struct {
	failWith error
	calls    []string
	merged   *cart.CartDTO
}

func (s *stubCartMerger) MergeGuestCart(ctx context.Context, userID uuid.UUID, guestToken string) (*cart.CartDTO, error) {
	s.calls = append(s.calls, guestToken)
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.merged != nil {
		return s.merged, nil
	}
	return &cart.CartDTO{}, nil
}
