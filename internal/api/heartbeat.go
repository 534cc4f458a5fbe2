package api

import (
	"time"

	"github.com/Jeffail/gabs/v2"

	"github.com/wesm/redmine-tracker/internal/redmine"
)

// Connectivity is the reachability of the Redmine server as seen by the last
// heartbeat probe
type Connectivity int

const (
	ConnectivityUnknown Connectivity = iota
	Accessible
	NotAccessible
)

func (c Connectivity) String() string {
	switch c {
	case Accessible:
		return "accessible"
	case NotAccessible:
		return "not accessible"
	}
	return "unknown"
}

// WithRecoveryDelay sets how long a heartbeat probe may stay in flight before
// the check is restarted
func WithRecoveryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.recoveryDelay = d
		}
	}
}

// OnConnectionChanged registers fn to be called whenever the connectivity
// changes. fn runs on the transport's event goroutine, except when a probe
// could not be dispatched at all.
func (c *Client) OnConnectionChanged(fn func(Connectivity)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Connectivity returns the state recorded by the last finished probe
func (c *Client) Connectivity() Connectivity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectivity
}

// CheckConnectionStatus probes the server by fetching a single issue. Calls
// made while a probe is in flight, or after Close, are ignored.
func (c *Client) CheckConnectionStatus() {
	c.mu.Lock()
	if c.checking || c.closed {
		c.mu.Unlock()
		return
	}
	c.checking = true
	c.checkGen++
	gen := c.checkGen
	c.mu.Unlock()

	cb := func(reply *redmine.Reply, _ *gabs.Container) {
		if err := reply.Err(); err != nil {
			c.logger.Debug("connection check failed", "error", err)
			c.setConnectionState(NotAccessible, gen)
			return
		}
		c.setConnectionState(Accessible, gen)
	}

	if _, err := c.rc.SendRequest("issues", cb, redmine.Get, "limit=1", nil); err != nil {
		c.setConnectionState(NotAccessible, gen)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.recovery != nil {
		c.recovery.Stop()
	}
	c.recovery = time.AfterFunc(c.recoveryDelay, func() { c.restartStuckCheck(gen) })
}

// restartStuckCheck starts a new probe when probe gen is still in flight
func (c *Client) restartStuckCheck(gen uint64) {
	c.mu.Lock()
	stuck := !c.closed && c.checking && c.checkGen == gen
	if stuck {
		c.checking = false
	}
	c.mu.Unlock()

	if stuck {
		c.logger.Debug("connection check still running, restarting")
		c.CheckConnectionStatus()
	}
}

// setConnectionState records the probe result. Late results of a restarted
// probe still update the state but leave the newer probe's flag alone.
func (c *Client) setConnectionState(state Connectivity, gen uint64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed := state != c.connectivity
	c.connectivity = state
	if gen == c.checkGen {
		c.checking = false
	}
	var listeners []func(Connectivity)
	if changed {
		listeners = append(listeners, c.listeners...)
	}
	c.mu.Unlock()

	if changed {
		c.logger.Info("connection changed", "state", state.String())
	}
	for _, fn := range listeners {
		fn(state)
	}
}
