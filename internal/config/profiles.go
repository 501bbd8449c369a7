package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Solvency/internal/scoring"
)

// LoadProfiles decodes one ScoringProfile per YAML file. Unknown keys are rejected so a typo
// cannot silently drop a weight.
func LoadProfiles(paths []string) ([]scoring.ScoringProfile, error) {
	profiles := make([]scoring.ScoringProfile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile %s: %w", path, err)
		}
		p, err := ParseProfile(data)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", path, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// ParseProfile decodes and validates a single YAML profile document.
func ParseProfile(data []byte) (scoring.ScoringProfile, error) {
	var p scoring.ScoringProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return scoring.ScoringProfile{}, fmt.Errorf("parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return scoring.ScoringProfile{}, err
	}
	return p, nil
}

// BuildRegistry merges the built-in profiles with the configured profile files. File profiles
// that leave max_snapshot_age_days unset inherit scoring.max_snapshot_age_days.
func BuildRegistry(cfg *Config) (*scoring.Registry, error) {
	loaded, err := LoadProfiles(cfg.Scoring.ProfileFiles)
	if err != nil {
		return nil, err
	}
	for i := range loaded {
		if loaded[i].MaxSnapshotAgeDays == 0 {
			loaded[i].MaxSnapshotAgeDays = cfg.Scoring.MaxSnapshotAgeDays
		}
	}
	all := append(scoring.BuiltinProfiles(), loaded...)
	return scoring.NewRegistry(cfg.Scoring.DefaultProfile, all...)
}

// MarshalProfiles renders profiles as a YAML stream, one document per profile.
func MarshalProfiles(profiles []scoring.ScoringProfile) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, p := range profiles {
		if err := enc.Encode(p); err != nil {
			return nil, fmt.Errorf("encode profile %s: %w", p.Version, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
