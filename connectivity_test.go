package tutor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tutor "github.com/asofia888/russian-talk-tutor"
)

func TestQualityFromLatency(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want tutor.NetworkQuality
	}{
		{0, tutor.QualityUnknown},
		{-time.Second, tutor.QualityUnknown},
		{50 * time.Millisecond, tutor.QualityGood},
		{299 * time.Millisecond, tutor.QualityGood},
		{300 * time.Millisecond, tutor.QualityModerate},
		{999 * time.Millisecond, tutor.QualityModerate},
		{time.Second, tutor.QualityPoor},
		{5 * time.Second, tutor.QualityPoor},
	}
	for _, tt := range tests {
		if got := tutor.QualityFromLatency(tt.d); got != tt.want {
			t.Errorf("QualityFromLatency(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestConnectivity_NotifiesOnTransitionsOnly(t *testing.T) {
	c := tutor.NewConnectivity(true)
	if c.WasOffline() {
		t.Error("WasOffline() = true for a monitor that started online")
	}

	var events []bool
	unsubscribe := c.OnChange(func(online bool) { events = append(events, online) })

	c.Set(true)
	c.Set(false)
	c.Set(false)
	c.Set(true)

	if len(events) != 2 || events[0] || !events[1] {
		t.Fatalf("events = %v, want [false true]", events)
	}
	if !c.WasOffline() {
		t.Error("WasOffline() = false after going offline")
	}

	unsubscribe()
	c.Set(false)
	if len(events) != 2 {
		t.Errorf("unsubscribed listener was called: %v", events)
	}
}

func TestConnectivity_Quality(t *testing.T) {
	c := tutor.NewConnectivity(false)
	if c.Quality() != tutor.QualityOffline {
		t.Errorf("offline Quality() = %s", c.Quality())
	}
	c.Set(true)
	if c.Quality() != tutor.QualityUnknown {
		t.Errorf("unprobed Quality() = %s, want unknown", c.Quality())
	}
	c.Probe(context.Background(), func(context.Context) error { return nil })
	if q := c.Quality(); q != tutor.QualityGood {
		t.Errorf("fast probe Quality() = %s, want good", q)
	}
}

func TestConnectivity_Probe(t *testing.T) {
	c := tutor.NewConnectivity(true)
	if c.Probe(context.Background(), func(context.Context) error { return errors.New("unreachable") }) {
		t.Error("Probe() = true for a failing probe")
	}
	if c.IsOnline() {
		t.Error("monitor should be offline after a failed probe")
	}
	if !c.Probe(context.Background(), func(context.Context) error { return nil }) {
		t.Error("Probe() = false for a passing probe")
	}
	if !c.IsOnline() {
		t.Error("monitor should be online after a passing probe")
	}
}

func TestConnectivity_Watch(t *testing.T) {
	c := tutor.NewConnectivity(false)
	var probes int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Watch(ctx, 5*time.Millisecond, func(context.Context) error {
			atomic.AddInt32(&probes, 1)
			return nil
		})
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&probes) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if atomic.LoadInt32(&probes) < 3 {
		t.Errorf("probes = %d, want at least 3", probes)
	}
	if !c.IsOnline() {
		t.Error("monitor should be online after passing probes")
	}
}
