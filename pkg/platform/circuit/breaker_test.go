package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBreakerIsClosed(t *testing.T) {
	b := New("nin-oracle")
	assert.Equal(t, "nin-oracle", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow(time.Now()))
}

func TestFailureThreshold(t *testing.T) {
	tests := []struct {
		name      string
		events    string // f = failure, s = success
		threshold int
		wantOpen  bool
	}{
		{name: "below threshold", events: "ff", threshold: 3},
		{name: "at threshold", events: "fff", threshold: 3, wantOpen: true},
		{name: "success resets the streak", events: "ffsff", threshold: 3},
		{name: "streak after reset", events: "ffsfff", threshold: 3, wantOpen: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", WithFailureThreshold(tt.threshold))
			for _, e := range tt.events {
				if e == 'f' {
					b.RecordFailure()
				} else {
					b.RecordSuccess()
				}
			}
			assert.Equal(t, tt.wantOpen, b.IsOpen())
		})
	}
}

func TestStateChangesAreReportedOnce(t *testing.T) {
	b := New("test", WithFailureThreshold(1), WithSuccessThreshold(2))

	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.False(t, change.Opened, "already open")

	primary, change := b.RecordSuccess()
	assert.False(t, primary)
	assert.False(t, change.Closed)

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestFailureWhileOpenRestartsRecovery(t *testing.T) {
	b := New("test", WithFailureThreshold(1), WithSuccessThreshold(3))
	b.RecordFailure()

	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordSuccess()
	require.True(t, b.IsOpen())

	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestAllowProbesOncePerCooldown(t *testing.T) {
	b := New("test", WithFailureThreshold(1), WithCooldown(time.Minute))
	now := time.Now()
	b.RecordFailure()

	assert.False(t, b.Allow(now))
	assert.True(t, b.Allow(now.Add(2*time.Minute)))
	assert.False(t, b.Allow(now.Add(2*time.Minute+time.Second)))
	assert.True(t, b.Allow(now.Add(4*time.Minute)))
}

func TestReset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow(time.Now()))
}
