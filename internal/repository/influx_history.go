package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"deye-status/internal/config"
	"deye-status/internal/domain"

	influxdb3 "github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"
)

// InfluxHistory archives normalized device readings to InfluxDB. It is an
// optional side channel: the serving path works without it, and callers
// treat write errors as non-fatal.
type InfluxHistory struct {
	client   *influxdb3.Client
	database string
}

// NewInfluxHistory connects to InfluxDB, or returns (nil, nil) when no URL
// is configured so callers can skip history entirely.
func NewInfluxHistory(cfg *config.Config) (*InfluxHistory, error) {
	if cfg.InfluxURL == "" {
		return nil, nil
	}

	clientConfig := influxdb3.ClientConfig{
		Host:     cfg.InfluxURL,
		Database: cfg.InfluxDatabase,
		WriteOptions: &influxdb3.WriteOptions{
			DefaultTags: map[string]string{
				"source": "deye_status",
			},
		},
	}
	if cfg.InfluxToken != "" {
		clientConfig.Token = cfg.InfluxToken
	}

	client, err := influxdb3.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("influx client init failed: %w", err)
	}

	return &InfluxHistory{client: client, database: cfg.InfluxDatabase}, nil
}

// WriteReadings stores one point per device reading.
func (h *InfluxHistory) WriteReadings(ctx context.Context, readings []domain.DeviceReading) error {
	if len(readings) == 0 {
		return nil
	}

	points := make([]*influxdb3.Point, 0, len(readings))
	for _, r := range readings {
		tags := map[string]string{
			"device_sn":    r.Sn,
			"grid_running": strconv.FormatBool(r.GridRunning),
		}
		fields := map[string]interface{}{
			"soc":       r.SOC,
			"grid_freq": r.GridFreq,
		}
		points = append(points, influxdb3.NewPoint("battery_reading", tags, fields, r.Timestamp))
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := h.client.WritePoints(ctx, points); err != nil {
		return fmt.Errorf("WritePoints failed: %w (points: %d, db: %s)", err, len(points), h.database)
	}
	return nil
}

// Close releases the InfluxDB client.
func (h *InfluxHistory) Close() error {
	return h.client.Close()
}
