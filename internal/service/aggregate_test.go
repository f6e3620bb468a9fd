package service

import (
	"testing"

	"deye-status/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	ch := domain.Channel{ID: 5, Name: "Heating", Devices: []string{"SN1", "SN2"}}

	t.Run("no readings reports explicit no-data state", func(t *testing.T) {
		snap := Aggregate(ch, nil)

		assert.Equal(t, 5, snap.ID)
		assert.Equal(t, "Heating", snap.Name)
		assert.Equal(t, 0, snap.Level)
		assert.Equal(t, 0.0, snap.GridFreq)
		assert.False(t, snap.Timestamp.IsZero())
	})

	t.Run("mean level and OR of grid flags", func(t *testing.T) {
		snap := Aggregate(ch, []domain.DeviceReading{
			{Sn: "SN1", SOC: 80, GridRunning: true, GridFreq: 50},
			{Sn: "SN2", SOC: 60, GridRunning: false, GridFreq: 0},
		})

		assert.Equal(t, 70, snap.Level)
		assert.Equal(t, 50.0, snap.GridFreq, "one powered device keeps the channel online")
	})

	t.Run("mean is rounded to nearest integer", func(t *testing.T) {
		snap := Aggregate(ch, []domain.DeviceReading{
			{SOC: 80, GridRunning: true, GridFreq: 50},
			{SOC: 61, GridRunning: true, GridFreq: 50},
		})

		assert.Equal(t, 71, snap.Level) // 70.5 rounds up
	})

	t.Run("online but implausibly low max frequency clamps to nominal", func(t *testing.T) {
		snap := Aggregate(ch, []domain.DeviceReading{
			{SOC: 40, GridRunning: true, GridFreq: 0},
		})

		assert.Equal(t, 50.0, snap.GridFreq)
	})

	t.Run("all offline reports zero frequency", func(t *testing.T) {
		snap := Aggregate(ch, []domain.DeviceReading{
			{SOC: 40, GridRunning: false, GridFreq: 0},
			{SOC: 90, GridRunning: false, GridFreq: 0},
		})

		assert.Equal(t, 65, snap.Level)
		assert.Equal(t, 0.0, snap.GridFreq)
	})

	t.Run("max frequency across devices wins", func(t *testing.T) {
		snap := Aggregate(ch, []domain.DeviceReading{
			{SOC: 40, GridRunning: true, GridFreq: 49.9},
			{SOC: 50, GridRunning: true, GridFreq: 50.1},
		})

		assert.Equal(t, 50.1, snap.GridFreq)
	})
}
