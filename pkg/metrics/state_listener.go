package metrics

import (
	"sync/atomic"

	"github.com/corvusdb/corvus-go/pkg/driver"
)

// StateMetricsListener implements driver.StateListener and counts probe
// outcomes. Register it on a server next to any functional listeners.
type StateMetricsListener struct {
	updatesTotal     atomic.Uint64
	probeErrorsTotal atomic.Uint64
	descriptionKnown atomic.Bool
	role             atomic.Value // driver.Role
}

// NewStateMetricsListener creates a state metrics listener.
func NewStateMetricsListener() *StateMetricsListener {
	l := &StateMetricsListener{}
	l.role.Store(driver.RoleUnknown)
	return l
}

var _ driver.StateListener = (*StateMetricsListener)(nil)

// DescriptionUpdated implements driver.StateListener.
func (l *StateMetricsListener) DescriptionUpdated(d *driver.Description) {
	l.updatesTotal.Add(1)
	l.descriptionKnown.Store(true)
	l.role.Store(d.Role)
}

// Error implements driver.StateListener.
func (l *StateMetricsListener) Error(error) {
	l.probeErrorsTotal.Add(1)
	l.descriptionKnown.Store(false)
	l.role.Store(driver.RoleUnknown)
}

// StateSnapshot is a point-in-time copy of the listener's state.
type StateSnapshot struct {
	UpdatesTotal     uint64
	ProbeErrorsTotal uint64
	DescriptionKnown bool
	Role             driver.Role
}

// Snapshot returns the current metric values.
func (l *StateMetricsListener) Snapshot() StateSnapshot {
	return StateSnapshot{
		UpdatesTotal:     l.updatesTotal.Load(),
		ProbeErrorsTotal: l.probeErrorsTotal.Load(),
		DescriptionKnown: l.descriptionKnown.Load(),
		Role:             l.role.Load().(driver.Role),
	}
}
