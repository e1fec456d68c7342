package keystone

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifetimeString(t *testing.T) {
	tests := []struct {
		name     string
		lifetime Lifetime
		expected string
	}{
		{"singleton", Singleton, "Singleton"},
		{"scoped", Scoped, "Scoped"},
		{"transient", Transient, "Transient"},
		{"unknown", Lifetime(999), "Unknown(999)"},
		{"negative unknown", Lifetime(-1), "Unknown(-1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.lifetime.String())
		})
	}
}

func TestLifetimeIsValid(t *testing.T) {
	assert.True(t, Singleton.IsValid())
	assert.True(t, Scoped.IsValid())
	assert.True(t, Transient.IsValid())
	assert.False(t, Lifetime(3).IsValid())
	assert.False(t, Lifetime(-1).IsValid())
}

func TestLifetimeTextRoundTrip(t *testing.T) {
	for _, l := range []Lifetime{Singleton, Scoped, Transient} {
		text, err := l.MarshalText()
		require.NoError(t, err)

		var decoded Lifetime
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, l, decoded)
	}
}

func TestLifetimeUnmarshalTextInvalid(t *testing.T) {
	var l Lifetime
	err := l.UnmarshalText([]byte("bogus"))
	require.Error(t, err)
	var lifetimeErr *LifetimeError
	require.ErrorAs(t, err, &lifetimeErr)
}

func TestLifetimeJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Scoped)
	require.NoError(t, err)
	assert.JSONEq(t, `"Scoped"`, string(data))

	var decoded Lifetime
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Scoped, decoded)
}
