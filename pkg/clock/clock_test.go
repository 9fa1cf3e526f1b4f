package clock

import (
	"testing"
	"time"
)

func TestManualSteps(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewManual(start, time.Second)

	if !c.Now().Equal(start) {
		t.Errorf("expected start time before first tick, got %v", c.Now())
	}

	c.Tick()
	c.Tick()
	c.Tick()

	want := start.Add(3 * time.Second)
	if !c.Now().Equal(want) {
		t.Errorf("expected %v after 3 ticks, got %v", want, c.Now())
	}
}

func TestSystemTickRefreshes(t *testing.T) {
	c := NewSystem()
	before := c.Now()

	time.Sleep(10 * time.Millisecond)
	if !c.Now().Equal(before) {
		t.Error("Now should be stable between ticks")
	}

	c.Tick()
	if !c.Now().After(before) {
		t.Error("Tick should advance the cached instant")
	}
}
