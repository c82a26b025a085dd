package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(m *Model)
		contains string
	}{
		{name: "bad level", mutate: func(m *Model) { m.Log.Level = "trace" }, contains: "log.level"},
		{name: "bad format", mutate: func(m *Model) { m.Log.Format = "xml" }, contains: "log.format"},
		{name: "negative ttl", mutate: func(m *Model) { m.Correlator.CompletedTTL = -time.Second }, contains: "completed_ttl"},
		{name: "ttl without interval", mutate: func(m *Model) { m.Correlator.SweepInterval = 0 }, contains: "sweep_interval"},
		{name: "empty address", mutate: func(m *Model) { m.Transport.Address = "" }, contains: "transport.address"},
		{name: "relative path", mutate: func(m *Model) { m.Transport.Path = "socket.io" }, contains: "transport.path"},
		{name: "port range", mutate: func(m *Model) { m.Healthcheck.Port = 70000 }, contains: "healthcheck.port"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Default()
			tc.mutate(m)
			err := m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	m := Default()
	m.Log.Level = "trace"
	m.Transport.Address = ""

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "transport.address")
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("latency", "250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	_, err = ParseDuration("latency", "soon")
	assert.ErrorContains(t, err, "latency")
}
