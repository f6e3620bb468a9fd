package domain

import "time"

// Channel is a logical monitored point (one dashboard tile), backed by
// one or more physical inverters identified by serial number.
type Channel struct {
	ID      int      `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Devices []string `json:"devices" yaml:"devices"`
}

// MetricEntry is one item of an upstream dataList. The upstream is not
// consistent about which of Key/Name carries the metric identifier, and
// Value arrives as a number, a numeric string or null depending on firmware.
type MetricEntry struct {
	Key   string      `json:"key"`
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// RawTelemetryRecord is the upstream per-device payload from /device/latest.
type RawTelemetryRecord struct {
	DeviceSn string        `json:"deviceSn"`
	DataList []MetricEntry `json:"dataList"`
}

// DeviceReading is a RawTelemetryRecord normalized into a fixed shape.
type DeviceReading struct {
	Sn          string    `json:"sn"`
	SOC         int       `json:"soc"`
	GridRunning bool      `json:"gridRunning"`
	GridFreq    float64   `json:"gridFreq"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChannelSnapshot is the per-channel public result served to the dashboard.
// A channel with no resolvable device readings is reported with Level 0 and
// GridFreq 0 rather than omitted.
type ChannelSnapshot struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Level     int       `json:"level"`
	GridFreq  float64   `json:"grid_freq"`
	Timestamp time.Time `json:"timestamp"`
}

// CachedToken is the stored upstream bearer token. It is never refreshed in
// place, only replaced after a fresh login.
type CachedToken struct {
	Token     string `json:"token"`
	CreatedAt int64  `json:"createdAt"` // unix milliseconds
}

// SnapshotSet is the stored result of one full fetch cycle.
type SnapshotSet struct {
	Batteries []ChannelSnapshot `json:"batteries"`
	Timestamp int64             `json:"timestamp"` // unix milliseconds
}

// ErrorLogEntry is one record of the bounded diagnostic error ring.
type ErrorLogEntry struct {
	Time    string `json:"time"`
	Context string `json:"context"`
	Message string `json:"message"`
}
