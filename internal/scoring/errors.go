package scoring

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProfile marks a malformed ScoringProfile. Nothing is scored under it.
	ErrInvalidProfile = errors.New("invalid scoring profile")
	// ErrUnknownProfile is returned by the registry for a version it does not hold.
	ErrUnknownProfile = errors.New("unknown scoring profile")
)

// ConfigurationError lists every problem found while validating a profile.
type ConfigurationError struct {
	Version  string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("scoring profile %q: %s", e.Version, strings.Join(e.Problems, "; "))
}

// Is lets callers match any ConfigurationError with errors.Is(err, ErrInvalidProfile).
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidProfile
}
