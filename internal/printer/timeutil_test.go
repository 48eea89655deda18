package printer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/model"
)

func TestAge(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		at  time.Time
		exp string
	}{
		"seconds old":            {at: now.Add(-42 * time.Second), exp: "42s"},
		"minutes old":            {at: now.Add(-3 * time.Minute), exp: "3m"},
		"hours old":              {at: now.Add(-5 * time.Hour), exp: "5h"},
		"days old":               {at: now.Add(-12 * 24 * time.Hour), exp: "12d"},
		"future clamps to zero":  {at: now.Add(30 * time.Second), exp: "0s"},
		"exactly one minute old": {at: now.Add(-time.Minute), exp: "1m"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, age(test.at, now))
		})
	}
}

func TestUptime(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "5m12s", uptime(now.Add(-(5*time.Minute+12*time.Second)), now))
	assert.Equal(t, "0s", uptime(now.Add(time.Minute), now))
}

func TestTimestamp(t *testing.T) {
	in := time.Date(2026, 2, 10, 13, 30, 5, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, "2026-02-10 12:30:05 UTC", timestamp(in))
}

func TestTablePrinterUptime(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	startedAt := now.Add(-90 * time.Second)

	var buf bytes.Buffer
	p := NewTablePrinter(&buf)
	p.timeNow = func() time.Time { return now }

	err := p.PrintStatus(model.Instance{
		Name:      "my-instance",
		Status:    model.InstanceStatusRunning,
		StartedAt: &startedAt,
		Config: model.InstanceConfig{
			Name:        "my-instance",
			LocalEngine: &model.LocalEngineConfig{},
		}.Defaults(),
		CreatedAt: now.Add(-time.Hour),
	}, nil)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Uptime:       1m30s")
}
