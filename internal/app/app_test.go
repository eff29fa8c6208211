package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/campus-market/internal/config"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/session"
)

func testConfig(store string) *config.Config {
	return &config.Config{
		BackendURL:         "http://backend.test/api",
		RequestTimeout:     time.Second,
		SessionStore:       store,
		SessionNotifier:    config.NotifierLocal,
		ReconcileInterval:  time.Second,
		CreditBanThreshold: 60,
	}
}

func TestNewMemory(t *testing.T) {
	a, err := New(context.Background(), testConfig(config.StoreMemory), nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Session.Authenticated())
	assert.False(t, a.Images.Enabled())

	// Токен клиента бэкенда берется из общего хранилища
	ctx := context.Background()
	require.NoError(t, a.Session.Login(ctx, &models.UserProfile{UserID: 3, Username: "li", Token: "tok"}))
	token, err := a.Session.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestNewSQLiteSharesSession(t *testing.T) {
	cfg := testConfig(config.StoreSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	first, err := New(ctx, cfg, nil, Options{})
	require.NoError(t, err)
	defer first.Close()
	second, err := New(ctx, cfg, nil, Options{})
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Session.Login(ctx, &models.UserProfile{UserID: 3, Username: "li", Token: "tok"}))

	// Второй процесс подхватывает вход из кэша при сверке
	decision, err := second.Session.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.DecisionAdopted, decision)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("redis")
	_, err := New(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)
}
