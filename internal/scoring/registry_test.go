package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(DefaultProfileVersion, BuiltinProfiles()...)
	require.NoError(t, err)

	assert.Equal(t, []string{ProfileFase0, ProfileFase1}, reg.Versions())
	assert.Equal(t, ProfileFase0, reg.DefaultVersion())

	p, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, ProfileFase0, p.Version)

	p, err = reg.Get(ProfileFase1)
	require.NoError(t, err)
	assert.Equal(t, 75.0, p.Ceiling)

	_, err = reg.Get("fase9")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestRegistryReturnsCopies(t *testing.T) {
	reg, err := NewRegistry(ProfileFase1, BuiltinProfiles()...)
	require.NoError(t, err)

	p := reg.Default()
	p.Indicators[0].Weight = 0
	p.Curves.Sigmoid[BracketMicro] = SigmoidParams{}

	again, err := reg.Get(ProfileFase1)
	require.NoError(t, err)
	assert.Equal(t, 15.0, again.Indicators[0].Weight)
	assert.Equal(t, 98.6, again.Curves.Sigmoid[BracketMicro].Steepness)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(ProfileFase0, Fase0Profile(), Fase0Profile())
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestRegistryRejectsInvalidProfile(t *testing.T) {
	bad := Fase0Profile()
	bad.Version = "broken"
	bad.Bands = nil

	_, err := NewRegistry(ProfileFase0, Fase0Profile(), bad)
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestRegistryUnknownDefault(t *testing.T) {
	_, err := NewRegistry("missing", BuiltinProfiles()...)
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestRegistryProfilesSorted(t *testing.T) {
	reg, err := NewRegistry(ProfileFase0, Fase1Profile(), Fase0Profile())
	require.NoError(t, err)

	ps := reg.Profiles()
	require.Len(t, ps, 2)
	assert.Equal(t, ProfileFase0, ps[0].Version)
	assert.Equal(t, ProfileFase1, ps[1].Version)
}
