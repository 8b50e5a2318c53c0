package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	tests := map[string]uint8{
		"CH00": 0,
		"ch07": 7,
		"CH10": 8,
		"CH17": 15,
		"3":    3,
		"200":  200,
	}
	for arg, want := range tests {
		got, err := parseChannel(arg)
		require.NoError(t, err, arg)
		assert.Equal(t, want, got, arg)
	}

	for _, arg := range []string{"CH08", "255", "-1", "x"} {
		_, err := parseChannel(arg)
		assert.Error(t, err, arg)
	}
}
