package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := clock.Now().Add(-time.Second)
	assert.GreaterOrEqual(t, clock.Since(past), time.Second)
}

func TestRealClock_NewTimer(t *testing.T) {
	timer := RealClock{}.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestMockClock_Advance(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clock.Now())
	assert.Equal(t, 90*time.Second, clock.Since(start))
}

func TestMockTimer_FiresOnDeadline(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := clock.NewTimer(100 * time.Millisecond)
	assert.Equal(t, 1, clock.PendingTimers())

	clock.Advance(50 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("fired early")
	default:
	}

	clock.Advance(50 * time.Millisecond)
	select {
	case got := <-timer.C():
		assert.Equal(t, time.Unix(0, 0).Add(100*time.Millisecond), got)
	default:
		t.Fatal("did not fire at deadline")
	}
	assert.Zero(t, clock.PendingTimers())
}

func TestMockTimer_ResetMovesDeadline(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := clock.NewTimer(100 * time.Millisecond)

	clock.Advance(80 * time.Millisecond)
	assert.True(t, timer.Reset(100*time.Millisecond))

	clock.Advance(80 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("reset timer fired at the old deadline")
	default:
	}

	clock.Advance(20 * time.Millisecond)
	select {
	case <-timer.C():
	default:
		t.Fatal("reset timer did not fire")
	}
}

func TestMockTimer_Stop(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := clock.NewTimer(time.Millisecond)
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clock.Advance(time.Second)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}
