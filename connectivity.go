package tutor

import (
	"context"
	"sync"
	"time"
)

// ConnectivityMonitor reports whether the network is reachable.
type ConnectivityMonitor interface {
	IsOnline() bool
	// OnChange registers fn for online/offline transitions and returns a
	// function that removes it.
	OnChange(fn func(online bool)) (unsubscribe func())
}

// NetworkQuality is a coarse link quality rating.
type NetworkQuality string

const (
	QualityGood     NetworkQuality = "good"
	QualityModerate NetworkQuality = "moderate"
	QualityPoor     NetworkQuality = "poor"
	QualityOffline  NetworkQuality = "offline"
	QualityUnknown  NetworkQuality = "unknown"
)

// QualityFromLatency rates a round trip duration.
func QualityFromLatency(d time.Duration) NetworkQuality {
	switch {
	case d <= 0:
		return QualityUnknown
	case d < 300*time.Millisecond:
		return QualityGood
	case d < time.Second:
		return QualityModerate
	default:
		return QualityPoor
	}
}

// ProbeFunc checks reachability of the backend.
type ProbeFunc func(ctx context.Context) error

// Connectivity is a ConnectivityMonitor driven by explicit updates or by
// periodic probes.
type Connectivity struct {
	mu         sync.Mutex
	online     bool
	wasOffline bool
	latency    time.Duration
	subs       map[int]func(bool)
	nextID     int
}

// NewConnectivity creates a monitor with the given initial state.
func NewConnectivity(online bool) *Connectivity {
	return &Connectivity{online: online, wasOffline: !online, subs: make(map[int]func(bool))}
}

// IsOnline implements ConnectivityMonitor.
func (c *Connectivity) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// WasOffline reports whether the monitor has been offline at any point.
func (c *Connectivity) WasOffline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wasOffline
}

// Quality rates the link from the last probe latency.
func (c *Connectivity) Quality() NetworkQuality {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.online {
		return QualityOffline
	}
	return QualityFromLatency(c.latency)
}

// OnChange implements ConnectivityMonitor.
func (c *Connectivity) OnChange(fn func(online bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Set records the current state and notifies subscribers on a transition.
func (c *Connectivity) Set(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	if !online {
		c.wasOffline = true
	}
	var subs []func(bool)
	if changed {
		for _, fn := range c.subs {
			subs = append(subs, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Probe runs probe once and updates the state from its outcome.
func (c *Connectivity) Probe(ctx context.Context, probe ProbeFunc) bool {
	start := time.Now()
	err := probe(ctx)
	online := err == nil
	if online {
		c.mu.Lock()
		c.latency = time.Since(start)
		c.mu.Unlock()
	}
	c.Set(online)
	return online
}

// Watch probes every interval until ctx is done.
func (c *Connectivity) Watch(ctx context.Context, interval time.Duration, probe ProbeFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Probe(ctx, probe)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Probe(ctx, probe)
		}
	}
}
