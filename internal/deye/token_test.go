package deye

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"deye-status/internal/domain"
	"deye-status/internal/kvstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() Credentials {
	return Credentials{
		AppID:     "app-1",
		AppSecret: "secret",
		Email:     "user@example.com",
		Password:  "pass",
	}
}

func TestTokenProvider(t *testing.T) {
	t.Run("login via email", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			require.Equal(t, "/v1.0/account/token", r.URL.Path)
			require.Equal(t, "app-1", r.URL.Query().Get("appId"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "user@example.com", body["email"])

			digest := sha256.Sum256([]byte("pass"))
			assert.Equal(t, hex.EncodeToString(digest[:]), body["password"], "upstream must only see the hash")

			json.NewEncoder(w).Encode(map[string]interface{}{"accessToken": "tok-123"})
		}))
		defer ts.Close()

		store := kvstore.NewMemory()
		p := NewTokenProvider(ts.Client(), ts.URL, store, testCreds(), "", time.Hour, nil)

		token, err := p.GetAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-123", token)
		assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("second call is served from the cache", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{"accessToken": "tok-123"})
		}))
		defer ts.Close()

		store := kvstore.NewMemory()
		p := NewTokenProvider(ts.Client(), ts.URL, store, testCreds(), "", time.Hour, nil)

		first, err := p.GetAccessToken(context.Background())
		require.NoError(t, err)
		second, err := p.GetAccessToken(context.Background())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "cached token must not hit the upstream")
	})

	t.Run("email rejection falls back to username", func(t *testing.T) {
		var sawUsername bool
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			if body["email"] != "" {
				json.NewEncoder(w).Encode(map[string]interface{}{"msg": "email not supported"})
				return
			}
			sawUsername = true
			assert.Equal(t, "user@example.com", body["username"])
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"accessToken": "tok-via-username"},
			})
		}))
		defer ts.Close()

		store := kvstore.NewMemory()
		p := NewTokenProvider(ts.Client(), ts.URL, store, testCreds(), "", time.Hour, nil)

		token, err := p.GetAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-via-username", token)
		assert.True(t, sawUsername)
	})

	t.Run("all strategies rejected surfaces an auth error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"msg": "bad credentials"})
		}))
		defer ts.Close()

		store := kvstore.NewMemory()
		p := NewTokenProvider(ts.Client(), ts.URL, store, testCreds(), "", time.Hour, nil)

		_, err := p.GetAccessToken(context.Background())
		require.Error(t, err)

		var ae *domain.AuthError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "login", ae.Kind)
		assert.Contains(t, ae.Msg, "bad credentials")
	})

	t.Run("missing credentials fail before any network call", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no upstream call expected")
		}))
		defer ts.Close()

		creds := testCreds()
		creds.Password = ""
		p := NewTokenProvider(ts.Client(), ts.URL, kvstore.NewMemory(), creds, "", time.Hour, nil)

		_, err := p.GetAccessToken(context.Background())
		require.Error(t, err)
		assert.True(t, domain.IsConfigError(err))
		assert.Contains(t, err.Error(), "DEYE_PASSWORD")
	})

	t.Run("manual token bypasses everything", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no upstream call expected")
		}))
		defer ts.Close()

		p := NewTokenProvider(ts.Client(), ts.URL, kvstore.NewMemory(), Credentials{}, "manual-tok", time.Hour, nil)

		token, err := p.GetAccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "manual-tok", token)
	})

	t.Run("successful login persists the token with a created timestamp", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{"accessToken": "tok-123"})
		}))
		defer ts.Close()

		store := kvstore.NewMemory()
		p := NewTokenProvider(ts.Client(), ts.URL, store, testCreds(), "", time.Hour, nil)

		_, err := p.GetAccessToken(context.Background())
		require.NoError(t, err)

		raw, found, err := store.Get(context.Background(), "deye_token")
		require.NoError(t, err)
		require.True(t, found)

		var cached domain.CachedToken
		require.NoError(t, json.Unmarshal([]byte(raw), &cached))
		assert.Equal(t, "tok-123", cached.Token)
		assert.Greater(t, cached.CreatedAt, int64(0))
	})
}
