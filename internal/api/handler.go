package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"deye-status/internal/config"
	"deye-status/internal/domain"
	"deye-status/internal/kvstore"
	"deye-status/internal/service"
	"deye-status/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests
type Handler struct {
	svc    *service.BatteryService
	cache  *service.SnapshotCache
	errlog *service.ErrorLog
	store  kvstore.Store
	cfg    *config.Config
}

// NewHandler creates a new handler
func NewHandler(svc *service.BatteryService, cache *service.SnapshotCache, errlog *service.ErrorLog, store kvstore.Store, cfg *config.Config) *Handler {
	return &Handler{svc: svc, cache: cache, errlog: errlog, store: store, cfg: cfg}
}

// GetBattery handles GET /api/battery
func (h *Handler) GetBattery(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=60")

	result, err := h.svc.GetStatus(c.Request.Context())
	if err != nil {
		logger.WriteLog("ERROR", RequestID(c), "BATTERY", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"data":   result.Data,
		"cached": result.Cached,
	}
	if result.Stale {
		resp["stale"] = true
		resp["error"] = result.ErrMsg
	}
	c.JSON(http.StatusOK, resp)
}

// GetDebug handles GET /api/debug: a snapshot of system health for
// operators. Never part of the serving contract.
func (h *Handler) GetDebug(c *gin.Context) {
	ctx := c.Request.Context()

	envCheck := gin.H{
		"DEYE_APP_ID":     presence(h.cfg.AppID != ""),
		"DEYE_APP_SECRET": presence(h.cfg.AppSecret != ""),
		"DEYE_EMAIL":      presence(h.cfg.Email != ""),
		"DEYE_PASSWORD":   presence(h.cfg.Password != ""),
	}

	tokenStatus := "no token cached"
	if raw, found, err := h.store.Get(ctx, "deye_token"); err == nil && found {
		var cached domain.CachedToken
		if json.Unmarshal([]byte(raw), &cached) == nil && cached.Token != "" {
			age := time.Since(time.UnixMilli(cached.CreatedAt))
			tokenStatus = fmt.Sprintf("valid (created %dd %dh ago)",
				int(age.Hours())/24, int(age.Hours())%24)
		}
	}

	dataStatus := "no data cached yet"
	var preview []gin.H
	if set, ok := h.cache.ReadAny(ctx); ok {
		age := time.Since(time.UnixMilli(set.Timestamp))
		verdict := "fresh"
		if age >= time.Duration(h.cfg.DataCacheTTL)*time.Second {
			verdict = "stale"
		}
		dataStatus = fmt.Sprintf("%s (updated %dm %ds ago)",
			verdict, int(age.Minutes()), int(age.Seconds())%60)

		for _, b := range set.Batteries {
			grid := "OFF"
			if b.GridFreq > 45 {
				grid = fmt.Sprintf("ON (%.1fHz)", b.GridFreq)
			}
			preview = append(preview, gin.H{
				"id":    b.ID,
				"name":  b.Name,
				"level": fmt.Sprintf("%d%%", b.Level),
				"grid":  grid,
			})
		}
	}

	recentErrors, _ := h.errlog.Recent(ctx)

	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"env_check":         envCheck,
		"token_status":      tokenStatus,
		"data_cache_status": dataStatus,
		"battery_preview":   preview,
		"recent_errors":     recentErrors,
		"help": gin.H{
			"clear_token":  "Delete 'deye_token' key from the KV store to force re-auth",
			"clear_data":   "Delete 'battery_data_v3' key from the KV store to force a data refresh",
			"clear_errors": "Delete 'error_log' key from the KV store to clear error history",
		},
	})
}

func presence(set bool) string {
	if set {
		return "SET"
	}
	return "MISSING"
}
