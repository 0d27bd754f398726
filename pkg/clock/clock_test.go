package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	c := Real()
	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	c := Real()
	start := c.Now()
	time.Sleep(10 * time.Millisecond)
	elapsed := c.Since(start)

	if elapsed < 10*time.Millisecond {
		t.Errorf("Since() = %v, want >= 10ms", elapsed)
	}
}

func TestRealClock_After(t *testing.T) {
	c := Real()
	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After(1ms) did not fire within 1s")
	}
}

func TestFakeClock_Now(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	c.Advance(time.Minute)
	if got := c.Now(); !got.Equal(start.Add(time.Minute)) {
		t.Errorf("Now() after Advance = %v, want %v", got, start.Add(time.Minute))
	}
}

func TestFakeClock_Since(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	c.Advance(90 * time.Second)
	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since(start) = %v, want 90s", got)
	}
}

func TestFakeClock_SleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	c.Sleep(10 * time.Second)
	c.Sleep(5 * time.Second)

	if got := c.Now(); !got.Equal(start.Add(15 * time.Second)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(15*time.Second))
	}

	slept := c.Slept()
	if len(slept) != 2 {
		t.Fatalf("Slept() returned %d entries, want 2", len(slept))
	}
	if slept[0] != 10*time.Second || slept[1] != 5*time.Second {
		t.Errorf("Slept() = %v, want [10s 5s]", slept)
	}
}

func TestFakeClock_SleepZeroIsNoop(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	c.Sleep(0)
	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}
	if got := len(c.Slept()); got != 0 {
		t.Errorf("Slept() returned %d entries, want 0", got)
	}
}

func TestFakeClock_AfterDeliversImmediately(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	select {
	case got := <-c.After(30 * time.Second):
		if !got.Equal(start.Add(30 * time.Second)) {
			t.Errorf("After delivered %v, want %v", got, start.Add(30*time.Second))
		}
	default:
		t.Fatal("After() channel was not ready")
	}

	if got := c.Now(); !got.Equal(start.Add(30 * time.Second)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(30*time.Second))
	}
}

func TestClockInterfaces(t *testing.T) {
	var _ Clock = Real()
	var _ Clock = NewFakeClock(time.Now())
}
