package config

import (
	"fmt"
	"os"

	"deye-status/internal/domain"

	"gopkg.in/yaml.v3"
)

// defaultChannels is the compiled-in channel topology, used when no
// CHANNELS_FILE is configured.
var defaultChannels = []domain.Channel{
	{ID: 1, Name: "Elevator P1", Devices: []string{"2509174814"}},
	{ID: 2, Name: "Elevator P2", Devices: []string{"2509174360"}},
	{ID: 3, Name: "Elevator P3", Devices: []string{"2407102635"}},
	{ID: 4, Name: "Water", Devices: []string{"2510143840"}},
	{ID: 5, Name: "Heating", Devices: []string{"2510293833"}},
}

type channelsFile struct {
	Channels []domain.Channel `yaml:"channels"`
}

// LoadChannels reads the channel topology from the YAML file at path, or
// returns the built-in defaults when path is empty. The topology is fixed
// for the lifetime of the process.
func LoadChannels(path string) ([]domain.Channel, error) {
	if path == "" {
		return defaultChannels, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels file: %w", err)
	}

	var cf channelsFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse channels file: %w", err)
	}

	if len(cf.Channels) == 0 {
		return nil, fmt.Errorf("channels file %s defines no channels", path)
	}

	seen := make(map[int]bool)
	for _, ch := range cf.Channels {
		if ch.Name == "" {
			return nil, fmt.Errorf("channel %d has no name", ch.ID)
		}
		if len(ch.Devices) == 0 {
			return nil, fmt.Errorf("channel %q has no devices", ch.Name)
		}
		if seen[ch.ID] {
			return nil, fmt.Errorf("duplicate channel id %d", ch.ID)
		}
		seen[ch.ID] = true
	}

	return cf.Channels, nil
}
