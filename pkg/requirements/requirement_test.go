package requirements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name     string
		expected PackageName
	}{
		{name: "pytest", expected: "pytest"},
		{name: "Flask", expected: "flask"},
		{name: "zope.interface", expected: "zope-interface"},
		{name: "ruamel_yaml", expected: "ruamel-yaml"},
		{name: "backports.functools-lru_cache", expected: "backports-functools-lru-cache"},
		{name: "name---with___runs", expected: "name-with-runs"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CanonicalName(tc.name))
		})
	}
}

func TestRequirementString(t *testing.T) {
	assert.Equal(t, "pytest==7.4.4", Requirement{Name: "pytest", Op: "==", Version: "7.4.4"}.String())
	assert.Equal(t, "wheel", Requirement{Name: "wheel"}.String())
	assert.Equal(t, "coverage[toml]==7.4.1", Requirement{
		Name: "coverage", Extras: []string{"toml"}, Op: "==", Version: "7.4.1",
	}.String())
}

func TestPinned(t *testing.T) {
	assert.True(t, Requirement{Name: "a", Op: "==", Version: "1"}.Pinned())
	assert.False(t, Requirement{Name: "a", Op: ">=", Version: "1"}.Pinned())
	assert.False(t, Requirement{Name: "a"}.Pinned())
}
