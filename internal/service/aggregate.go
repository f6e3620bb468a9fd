package service

import (
	"math"
	"time"

	"deye-status/internal/domain"
)

const nominalGridFreq = 50.0

// Aggregate folds the readings of a channel's physical devices into one
// ChannelSnapshot. With no readings the channel is reported in an explicit
// no-data state (level 0, grid_freq 0) rather than dropped, so the
// dashboard keeps a tile for it.
func Aggregate(ch domain.Channel, readings []domain.DeviceReading) domain.ChannelSnapshot {
	now := time.Now().UTC()

	if len(readings) == 0 {
		return domain.ChannelSnapshot{
			ID:        ch.ID,
			Name:      ch.Name,
			Level:     0,
			GridFreq:  0,
			Timestamp: now,
		}
	}

	totalSOC := 0
	gridOn := false
	maxFreq := 0.0
	for _, r := range readings {
		totalSOC += r.SOC
		// OR across devices: one dead sensor must not mask a channel that
		// is actually powered.
		gridOn = gridOn || r.GridRunning
		maxFreq = math.Max(maxFreq, r.GridFreq)
	}

	gridFreq := 0.0
	if gridOn {
		gridFreq = maxFreq
		if maxFreq <= 45 {
			gridFreq = nominalGridFreq
		}
	}

	return domain.ChannelSnapshot{
		ID:        ch.ID,
		Name:      ch.Name,
		Level:     int(math.Round(float64(totalSOC) / float64(len(readings)))),
		GridFreq:  gridFreq,
		Timestamp: now,
	}
}
