package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func saveJSON(v interface{}, path string) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return nil
}

// Save writes the daemon configuration
func Save(c *Config, path string) error {
	return saveJSON(c, path)
}

// Load reads a daemon configuration. Fields missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if err := loadJSON(path, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveSnapshot writes a register snapshot
func SaveSnapshot(snapshot *Snapshot, path string) error {
	return saveJSON(snapshot, path)
}

// LoadSnapshot reads a register snapshot
func LoadSnapshot(path string) (*Snapshot, error) {
	var snapshot Snapshot
	if err := loadJSON(path, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// GetSnapshotPath returns the default snapshot location for a board name
func GetSnapshotPath(name string) string {
	return filepath.Join("etc", "airchat", "snapshots", fmt.Sprintf("%s.json", name))
}
