package deye

import (
	"math"
	"strconv"
	"time"

	"deye-status/internal/domain"
)

// Metric alias chains, ordered by preference. Deye firmware generations
// disagree on field naming, so each logical metric is looked up through
// every spelling we have seen in the wild. Adding a new device generation
// should only ever mean adding an alias here.
var (
	socBMSAliases     = []string{"BMSSOC", "BMS_SOC"}
	socGenericAliases = []string{"SOC", "Battery_SOC"}
	freqAliases       = []string{"GridFrequency", "Grid_Frequency"}
	voltageL1Aliases  = []string{"GridVoltageL1", "GridVoltage", "Grid_Voltage_L1"}
	voltageL2Aliases  = []string{"GridVoltageL2", "Grid_Voltage_L2"}
	voltageL3Aliases  = []string{"GridVoltageL3", "Grid_Voltage_L3"}
)

const (
	// Grid presence thresholds. Either signal alone is enough: depending
	// on the device model the frequency or the voltage sensor may be
	// missing from the data list entirely.
	gridFreqThreshold    = 45.0
	gridVoltageThreshold = 100.0
	nominalGridFreq      = 50.0
)

// ExtractReading normalizes one raw upstream record into a DeviceReading.
// Returns nil when the record carries no metric list.
func ExtractReading(rec *domain.RawTelemetryRecord) *domain.DeviceReading {
	if rec == nil || len(rec.DataList) == 0 {
		return nil
	}

	soc := metricFloat(rec.DataList, socBMSAliases)
	if soc == 0 {
		// A BMS SOC of exactly zero almost always means the BMS value is
		// missing for this generation, not an empty battery. The plain
		// inverter-side SOC is the fallback.
		soc = metricFloat(rec.DataList, socGenericAliases)
	}

	freq := metricFloat(rec.DataList, freqAliases)
	v1 := metricFloat(rec.DataList, voltageL1Aliases)
	v2 := metricFloat(rec.DataList, voltageL2Aliases)
	v3 := metricFloat(rec.DataList, voltageL3Aliases)

	maxVoltage := math.Max(v1, math.Max(v2, v3))
	gridOn := freq > gridFreqThreshold || maxVoltage > gridVoltageThreshold

	reportedFreq := freq
	if freq <= 0 {
		if gridOn {
			reportedFreq = nominalGridFreq
		} else {
			reportedFreq = 0
		}
	}

	return &domain.DeviceReading{
		Sn:          rec.DeviceSn,
		SOC:         int(math.Round(soc)),
		GridRunning: gridOn,
		GridFreq:    reportedFreq,
		Timestamp:   time.Now().UTC(),
	}
}

// metricFloat returns the value of the first alias present with a non-null
// value, matching either the key or the display name of a data list entry.
// Values that are present but not numeric count as 0, matching how the
// dashboard has always treated them.
func metricFloat(dataList []domain.MetricEntry, aliases []string) float64 {
	for _, alias := range aliases {
		for _, entry := range dataList {
			if entry.Key != alias && entry.Name != alias {
				continue
			}
			if entry.Value == nil {
				continue
			}
			return asFloat(entry.Value)
		}
	}
	return 0
}

// asFloat coerces the loosely typed upstream value into a float64. The
// upstream mixes numbers and numeric strings freely.
func asFloat(val interface{}) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return 0
}
