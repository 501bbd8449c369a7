package scoring

import (
	"fmt"
	"sort"
)

// Registry holds published profiles by version. It is immutable after construction and
// hands out deep copies.
type Registry struct {
	profiles       map[string]ScoringProfile
	defaultVersion string
}

// NewRegistry validates every profile. Duplicate versions are rejected since a published version
// never changes.
func NewRegistry(defaultVersion string, profiles ...ScoringProfile) (*Registry, error) {
	r := &Registry{
		profiles:       make(map[string]ScoringProfile, len(profiles)),
		defaultVersion: defaultVersion,
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.profiles[p.Version]; dup {
			return nil, &ConfigurationError{Version: p.Version, Problems: []string{"version published more than once"}}
		}
		r.profiles[p.Version] = p.Clone()
	}
	if _, ok := r.profiles[defaultVersion]; !ok {
		return nil, fmt.Errorf("default profile %q: %w", defaultVersion, ErrUnknownProfile)
	}
	return r, nil
}

// Get returns the profile for version. An empty version selects the default.
func (r *Registry) Get(version string) (ScoringProfile, error) {
	if version == "" {
		version = r.defaultVersion
	}
	p, ok := r.profiles[version]
	if !ok {
		return ScoringProfile{}, fmt.Errorf("profile %q: %w", version, ErrUnknownProfile)
	}
	return p.Clone(), nil
}

// Default returns the default profile.
func (r *Registry) Default() ScoringProfile {
	return r.profiles[r.defaultVersion].Clone()
}

// DefaultVersion returns the version used when none is requested.
func (r *Registry) DefaultVersion() string {
	return r.defaultVersion
}

// Versions returns every registered version, sorted.
func (r *Registry) Versions() []string {
	out := make([]string, 0, len(r.profiles))
	for v := range r.profiles {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Profiles returns copies of every registered profile, sorted by version.
func (r *Registry) Profiles() []ScoringProfile {
	out := make([]ScoringProfile, 0, len(r.profiles))
	for _, v := range r.Versions() {
		out = append(out, r.profiles[v].Clone())
	}
	return out
}
