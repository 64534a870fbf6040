package erdgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Profile struct {
	DBType     string   `json:"db_type,omitempty"`
	DBURL      string   `json:"db_url,omitempty"`
	OutputFile string   `json:"output,omitempty"`
	Format     string   `json:"format,omitempty"`
	Theme      int64    `json:"theme,omitempty"`
	Direction  string   `json:"direction,omitempty"`
	Tables     []string `json:"tables,omitempty"`
	MaxTables  int      `json:"max_tables,omitempty"`
	Timeout    string   `json:"timeout,omitempty"`
}

func loadProfile(path, name string) (Profile, error) {
	profiles, err := loadProfiles(path)
	if err != nil {
		return Profile{}, err
	}

	key := strings.TrimSpace(name)
	if key == "" {
		return Profile{}, errors.New("profile name cannot be empty")
	}

	p, ok := profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not found in %s", key, path)
	}

	return p, nil
}

func loadProfiles(path string) (map[string]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Profile{}, nil
		}
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	profiles := make(map[string]Profile)
	if len(strings.TrimSpace(string(raw))) == 0 {
		return profiles, nil
	}

	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}

	return profiles, nil
}

func saveProfile(path, name string, cfg Config) error {
	key := strings.TrimSpace(name)
	if key == "" {
		return errors.New("--save-profile cannot be empty")
	}

	profiles, err := loadProfiles(path)
	if err != nil {
		return err
	}

	profiles[key] = profileFromConfig(cfg)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create profiles directory: %w", err)
	}

	payload, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write profiles file: %w", err)
	}

	return nil
}

func profileFromConfig(cfg Config) Profile {
	return Profile{
		DBType:     cfg.DBType,
		DBURL:      cfg.DBURL,
		OutputFile: cfg.OutputFile,
		Format:     cfg.Format,
		Theme:      cfg.Theme,
		Direction:  cfg.Direction,
		Tables:     append([]string(nil), cfg.Tables...),
		MaxTables:  cfg.MaxTables,
		Timeout:    cfg.Timeout.String(),
	}
}

func applyProfileDefaults(cfg *Config, p Profile) {
	if strings.TrimSpace(p.DBType) != "" {
		cfg.DBType = strings.TrimSpace(p.DBType)
	}
	if strings.TrimSpace(p.DBURL) != "" {
		cfg.DBURL = strings.TrimSpace(p.DBURL)
	}
	if strings.TrimSpace(p.OutputFile) != "" {
		cfg.OutputFile = strings.TrimSpace(p.OutputFile)
	}
	if strings.TrimSpace(p.Format) != "" {
		cfg.Format = strings.TrimSpace(p.Format)
	}
	if p.Theme > 0 {
		cfg.Theme = p.Theme
	}
	if strings.TrimSpace(p.Direction) != "" {
		cfg.Direction = strings.TrimSpace(p.Direction)
	}
	if len(p.Tables) > 0 {
		cfg.Tables = append([]string(nil), p.Tables...)
	}
	if p.MaxTables > 0 {
		cfg.MaxTables = p.MaxTables
	}
	if strings.TrimSpace(p.Timeout) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(p.Timeout))
		if err == nil && d > 0 {
			cfg.Timeout = d
		}
	}
}
