package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/campus-market/internal/app"
	"github.com/rajivgeraev/campus-market/internal/config"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "campusctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"login"}, {"logout"}, {"whoami"}, {"sync"},
		{"trades", "list"}, {"trades", "show"}, {"trades", "accept"},
		{"inbox", "list"}, {"inbox", "show"}, {"inbox", "send"},
		{"goods", "list"},
	}

	for _, path := range commands {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], subCmd.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, nil, "whoami", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// fakeBackend отвечает как бэкенд площадки для одного пользователя
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	profile := map[string]any{"userId": 7, "username": "alice", "creditScore": 90}
	trade := map[string]any{
		"id": 1, "buyerId": 20, "sellerId": 7, "status": "PENDING", "totalAmount": 35.5,
		"product": map[string]any{"id": 3, "title": "台灯", "price": 35.5},
	}

	reply := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 200, "message": "success", "data": data})
	}
	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("token") != "tok-7" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 401, "message": "未登录"})
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
		withToken := map[string]any{"token": "tok-7"}
		for k, v := range profile {
			withToken[k] = v
		}
		reply(w, withToken)
	})
	mux.HandleFunc("GET /api/user/profile", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			reply(w, profile)
		}
	})
	mux.HandleFunc("GET /api/trades", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			reply(w, map[string]any{"list": []any{trade}, "total": 1, "pageNum": 1, "pageSize": 10, "pages": 1})
		}
	})
	mux.HandleFunc("GET /api/trades/1", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			reply(w, trade)
		}
	})
	mux.HandleFunc("PUT /api/trades/1/status", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			trade["status"] = "ACCEPTED"
			reply(w, trade)
		}
	})
	mux.HandleFunc("GET /api/review/order/1", func(w http.ResponseWriter, r *http.Request) {
		reply(w, nil)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func sqliteOpener(backendURL, path string) Opener {
	return func(ctx context.Context, log *logger.Logger, opts app.Options) (*app.App, error) {
		return app.New(ctx, &config.Config{
			BackendURL:         backendURL,
			RequestTimeout:     2 * time.Second,
			SessionStore:       config.StoreSQLite,
			SQLitePath:         path,
			SessionNotifier:    config.NotifierLocal,
			ReconcileInterval:  time.Second,
			CreditBanThreshold: 60,
		}, log, opts)
	}
}

func execute(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	if open == nil {
		open = sqliteOpener("http://127.0.0.1:1/api", filepath.Join(t.TempDir(), "session.db"))
	}
	cmd := newRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSessionAcrossInvocations(t *testing.T) {
	srv := fakeBackend(t)
	open := sqliteOpener(srv.URL+"/api", filepath.Join(t.TempDir(), "session.db"))

	out, err := execute(t, open, "login", "-u", "alice", "-p", "pw", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"username": "alice"`)
	assert.NotContains(t, out, "tok-7")

	// Каждый вызов - новый процесс: сессия берется из общего хранилища
	out, err = execute(t, open, "whoami", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "username: alice")
	assert.Contains(t, out, "creditLabel: 信用良好")

	out, err = execute(t, open, "trades", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "seller")
	assert.Contains(t, out, "accept")

	out, err = execute(t, open, "trades", "accept", "1", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ACCEPTED"`)

	_, err = execute(t, open, "logout")
	require.NoError(t, err)

	_, err = execute(t, open, "whoami")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLoginRequiresPassword(t *testing.T) {
	t.Setenv(passwordEnv, "")
	_, err := execute(t, nil, "login", "-u", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidTradeID(t *testing.T) {
	_, err := execute(t, nil, "trades", "show", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
