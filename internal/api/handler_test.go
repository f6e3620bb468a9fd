package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deye-status/internal/config"
	"deye-status/internal/deye"
	"deye-status/internal/domain"
	"deye-status/internal/kvstore"
	"deye-status/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRouter builds the full gin stack against a fake upstream.
func testRouter(t *testing.T, upstreamOK bool) (*gin.Engine, kvstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1.0/account/token":
			json.NewEncoder(w).Encode(map[string]interface{}{"accessToken": "tok"})
		case "/v1.0/device/latest":
			if !upstreamOK {
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "msg": "boom"})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"deviceDataList": []map[string]interface{}{
					{"deviceSn": "SN1", "dataList": []map[string]interface{}{
						{"key": "BMSSOC", "value": 81},
						{"key": "GridFrequency", "value": 50.0},
					}},
				},
			})
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		AppID:        "a",
		AppSecret:    "s",
		Email:        "e@x",
		Password:     "p",
		DataCacheTTL: 300,
	}

	store := kvstore.NewMemory()
	errlog := service.NewErrorLog(store)
	tokens := deye.NewTokenProvider(ts.Client(), ts.URL, store, deye.Credentials{
		AppID: cfg.AppID, AppSecret: cfg.AppSecret, Email: cfg.Email, Password: cfg.Password,
	}, "", time.Hour, errlog)
	client := deye.NewClient(ts.Client(), ts.URL)
	cache := service.NewSnapshotCache(store, 300*time.Second)
	channels := []domain.Channel{{ID: 1, Name: "Elevator", Devices: []string{"SN1"}}}
	svc := service.NewBatteryService(tokens, client, cache, errlog, channels, nil)

	r := gin.New()
	r.Use(Logger())
	r.Use(CORS())
	SetupRoutes(r, NewHandler(svc, cache, errlog, store, cfg))
	return r, store
}

func TestBatteryEndpoint(t *testing.T) {
	t.Run("fresh fetch returns data with cached false", func(t *testing.T) {
		r, _ := testRouter(t, true)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/battery", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

		var resp struct {
			Data   []domain.ChannelSnapshot `json:"data"`
			Cached bool                     `json:"cached"`
			Stale  bool                     `json:"stale"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Cached)
		assert.False(t, resp.Stale)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, 81, resp.Data[0].Level)
	})

	t.Run("second request is served from cache", func(t *testing.T) {
		r, _ := testRouter(t, true)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/battery", nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/battery", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["cached"])
	})

	t.Run("upstream failure with no cache is a 500", func(t *testing.T) {
		r, _ := testRouter(t, false)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/battery", nil))

		require.Equal(t, http.StatusInternalServerError, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "boom")
	})

	t.Run("upstream failure with stale cache is a 200", func(t *testing.T) {
		r, store := testRouter(t, false)

		stale := domain.SnapshotSet{
			Batteries: []domain.ChannelSnapshot{{ID: 1, Name: "Elevator", Level: 77, GridFreq: 50}},
			Timestamp: time.Now().Add(-time.Hour).UnixMilli(),
		}
		raw, _ := json.Marshal(stale)
		require.NoError(t, store.Put(context.Background(), "battery_data_v3", string(raw), 0))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/battery", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["cached"])
		assert.Equal(t, true, resp["stale"])
		assert.Contains(t, resp["error"], "boom")
	})

	t.Run("preflight gets an empty 204 with CORS headers", func(t *testing.T) {
		r, _ := testRouter(t, true)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/battery", nil))

		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
		assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})
}

func TestDebugEndpoint(t *testing.T) {
	t.Run("reports missing credentials and empty cache", func(t *testing.T) {
		gin.SetMode(gin.TestMode)

		store := kvstore.NewMemory()
		cfg := &config.Config{DataCacheTTL: 300}
		errlog := service.NewErrorLog(store)
		cache := service.NewSnapshotCache(store, 300*time.Second)

		r := gin.New()
		SetupRoutes(r, NewHandler(nil, cache, errlog, store, cfg))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			EnvCheck    map[string]string `json:"env_check"`
			TokenStatus string            `json:"token_status"`
			DataStatus  string            `json:"data_cache_status"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "MISSING", resp.EnvCheck["DEYE_APP_ID"])
		assert.Equal(t, "no token cached", resp.TokenStatus)
		assert.Equal(t, "no data cached yet", resp.DataStatus)
	})

	t.Run("reports token and snapshot age", func(t *testing.T) {
		r, _ := testRouter(t, true)

		// Populate the caches via a real request.
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/battery", nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			TokenStatus string `json:"token_status"`
			DataStatus  string `json:"data_cache_status"`
			Preview     []struct {
				Level string `json:"level"`
				Grid  string `json:"grid"`
			} `json:"battery_preview"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.TokenStatus, "valid")
		assert.Contains(t, resp.DataStatus, "fresh")
		require.Len(t, resp.Preview, 1)
		assert.Equal(t, "81%", resp.Preview[0].Level)
		assert.Contains(t, resp.Preview[0].Grid, "ON")
	})
}
