package service

import (
	"context"
	"time"

	"deye-status/internal/deye"
	"deye-status/internal/domain"
	"deye-status/internal/metrics"
	"deye-status/pkg/logger"
)

// HistoryWriter records normalized readings after a successful fetch cycle.
type HistoryWriter interface {
	WriteReadings(ctx context.Context, readings []domain.DeviceReading) error
}

// StatusResult is the outcome of one battery status request.
type StatusResult struct {
	Data   []domain.ChannelSnapshot
	Cached bool
	Stale  bool
	ErrMsg string
}

// BatteryService runs the request pipeline: cache check, authenticate,
// batched fetch, per-channel normalize+aggregate, persist, respond. Any
// failure past the cache check falls back to the last stored snapshot,
// however old, before surfacing an error.
type BatteryService struct {
	tokens   *deye.TokenProvider
	client   *deye.Client
	cache    *SnapshotCache
	errlog   *ErrorLog
	channels []domain.Channel
	history  HistoryWriter // optional
}

// NewBatteryService wires the pipeline. history may be nil.
func NewBatteryService(tokens *deye.TokenProvider, client *deye.Client, cache *SnapshotCache, errlog *ErrorLog, channels []domain.Channel, history HistoryWriter) *BatteryService {
	return &BatteryService{
		tokens:   tokens,
		client:   client,
		cache:    cache,
		errlog:   errlog,
		channels: channels,
		history:  history,
	}
}

// Channels returns the configured channel topology.
func (s *BatteryService) Channels() []domain.Channel {
	return s.channels
}

// GetStatus serves one request. It returns an error only when the fetch
// failed AND no stored snapshot of any age exists; in every other case the
// result carries data.
func (s *BatteryService) GetStatus(ctx context.Context) (*StatusResult, error) {
	if set, ok := s.cache.ReadFresh(ctx); ok {
		metrics.CacheHits.Inc()
		return &StatusResult{Data: set.Batteries, Cached: true}, nil
	}
	metrics.CacheMisses.Inc()

	batteries, err := s.fetchCycle(ctx)
	if err != nil {
		return s.fallback(ctx, err)
	}

	s.cache.Write(ctx, batteries)
	return &StatusResult{Data: batteries, Cached: false}, nil
}

// fetchCycle performs authenticate + fetch + normalize + aggregate.
func (s *BatteryService) fetchCycle(ctx context.Context) ([]domain.ChannelSnapshot, error) {
	start := time.Now()
	defer func() {
		metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}()

	token, err := s.tokens.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var allSns []string
	for _, ch := range s.channels {
		allSns = append(allSns, ch.Devices...)
	}

	records, err := s.client.FetchLatest(ctx, token, allSns)
	if err != nil {
		return nil, err
	}

	var readings []domain.DeviceReading
	batteries := make([]domain.ChannelSnapshot, 0, len(s.channels))
	for _, ch := range s.channels {
		var chReadings []domain.DeviceReading
		for _, sn := range ch.Devices {
			rec, ok := records[sn]
			if !ok {
				continue
			}
			if reading := deye.ExtractReading(&rec); reading != nil {
				chReadings = append(chReadings, *reading)
			}
		}
		readings = append(readings, chReadings...)
		batteries = append(batteries, Aggregate(ch, chReadings))
	}

	if s.history != nil && len(readings) > 0 {
		// History is a side channel; it must never delay or fail a request.
		go func(readings []domain.DeviceReading) {
			hctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.history.WriteReadings(hctx, readings); err != nil {
				logger.Errorf("history write failed: %v", err)
			}
		}(readings)
	}

	return batteries, nil
}

// fallback serves the last stored snapshot regardless of age, or surfaces
// the error when nothing is stored.
func (s *BatteryService) fallback(ctx context.Context, cause error) (*StatusResult, error) {
	logger.Errorf("battery fetch failed: %v", cause)
	s.errlog.Append(ctx, "battery_fetch", cause.Error())

	if set, ok := s.cache.ReadAny(ctx); ok {
		metrics.StaleFallbacks.Inc()
		return &StatusResult{
			Data:   set.Batteries,
			Cached: true,
			Stale:  true,
			ErrMsg: cause.Error(),
		}, nil
	}

	return nil, cause
}
