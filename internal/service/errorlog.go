package service

import (
	"context"
	"encoding/json"
	"time"

	"deye-status/internal/domain"
	"deye-status/internal/kvstore"
)

const (
	errorLogKey      = "error_log"
	errorLogCap      = 10
	errorLogMsgLimit = 200
	errorLogTTL      = 7 * 24 * time.Hour
)

// ErrorLog is a bounded, newest-first ring of handled failures kept in the
// KV store. It is purely diagnostic: the serving path never reads it, and
// every operation on it is best-effort.
type ErrorLog struct {
	store kvstore.Store
}

// NewErrorLog creates an error log over the given store.
func NewErrorLog(store kvstore.Store) *ErrorLog {
	return &ErrorLog{store: store}
}

// Append prepends an entry, trimming the ring to its cap. Failures to log
// are ignored.
func (l *ErrorLog) Append(ctx context.Context, contextTag, message string) {
	entries, _ := l.Recent(ctx)

	if len(message) > errorLogMsgLimit {
		message = message[:errorLogMsgLimit]
	}
	entries = append([]domain.ErrorLogEntry{{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Context: contextTag,
		Message: message,
	}}, entries...)

	if len(entries) > errorLogCap {
		entries = entries[:errorLogCap]
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	l.store.Put(ctx, errorLogKey, string(raw), errorLogTTL)
}

// Recent returns the logged entries, newest first.
func (l *ErrorLog) Recent(ctx context.Context) ([]domain.ErrorLogEntry, error) {
	raw, found, err := l.store.Get(ctx, errorLogKey)
	if err != nil || !found {
		return nil, err
	}

	var entries []domain.ErrorLogEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}
