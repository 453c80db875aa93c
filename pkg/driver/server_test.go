package driver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	cerrors "github.com/corvusdb/corvus-go/internal/errors"
	"github.com/corvusdb/corvus-go/pkg/driver"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

func newTestServer(t *testing.T, factory driver.ConnectionFactory, asyncFactory driver.AsyncConnectionFactory, scheduler driver.Scheduler) *driver.Server {
	t.Helper()
	s, err := driver.NewServer(testAddress(), factory, asyncFactory, scheduler, driver.ServerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestServerDescriptionLifecycle covers the cache state machine:
// unknown until the first probe, known after a success, unknown again
// after a failure.
func TestServerDescriptionLifecycle(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{
		{conn: probeConn("primary")},
		{err: errors.New("connection refused")},
	}}
	s := newTestServer(t, factory, nil, scheduler)

	require.Nil(t, s.GetDescription(), "description must be absent before the first probe")

	scheduler.runScheduled()
	desc := s.GetDescription()
	require.NotNil(t, desc)
	require.Equal(t, driver.RolePrimary, desc.Role)
	require.Equal(t, testAddress(), desc.Address)
	require.True(t, desc.Primary())

	scheduler.runScheduled()
	require.Nil(t, s.GetDescription(), "a failed probe must reset the description")
}

// TestServerHeartbeatScheduling verifies the monitor is scheduled on
// construction with zero initial delay and the default period.
func TestServerHeartbeatScheduling(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, nil, scheduler)
	defer func() { _ = s.Close() }()

	require.Len(t, scheduler.scheduled, 1)
	require.Zero(t, scheduler.scheduled[0].initialDelay)
	require.Equal(t, driver.DefaultServerConfig().HeartbeatInterval, scheduler.scheduled[0].period)
}

// TestServerInvalidate checks that Invalidate clears the cache and submits
// exactly one off-cycle probe, every time.
func TestServerInvalidate(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, nil, scheduler)

	scheduler.runScheduled()
	require.NotNil(t, s.GetDescription())

	s.Invalidate()
	require.Nil(t, s.GetDescription(), "Invalidate must clear the cache immediately")
	require.Equal(t, 1, scheduler.submittedCount())

	// Invalidating an already-unknown server still submits a probe.
	s.Invalidate()
	require.Equal(t, 2, scheduler.submittedCount())
}

// TestServerInvalidateSequence is the drop-and-recover scenario: the probe
// answers primary, then the network fails; the observed description
// sequence is absent, primary, absent.
func TestServerInvalidateSequence(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{
		{conn: probeConn("primary")},
		{err: errors.New("read tcp: connection reset")},
	}}
	s := newTestServer(t, factory, nil, scheduler)

	require.Nil(t, s.GetDescription())

	scheduler.runScheduled()
	require.Equal(t, driver.RolePrimary, s.GetDescription().Role)

	s.Invalidate()
	scheduler.runSubmitted()
	require.Nil(t, s.GetDescription())
}

// TestServerConcurrentProbeWrites pins last-writer-wins between a periodic
// tick and an invalidate-forced run: the cache holds whichever completion
// wrote last.
func TestServerConcurrentProbeWrites(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{
		{conn: probeConn("primary")},
		{conn: probeConn("secondary")},
	}}
	s := newTestServer(t, factory, nil, scheduler)

	scheduler.runScheduled()
	require.Equal(t, driver.RolePrimary, s.GetDescription().Role)

	s.Invalidate()
	scheduler.runSubmitted()
	require.Equal(t, driver.RoleSecondary, s.GetDescription().Role,
		"the later completion must win")
}

// TestServerListeners covers fan-out and the no-replay rule.
func TestServerListeners(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{
		{conn: probeConn("primary")},
		{err: errors.New("unreachable")},
	}}
	s := newTestServer(t, factory, nil, scheduler)

	early := &recordingListener{}
	s.AddChangeListener(early)

	scheduler.runScheduled()
	require.Len(t, early.Updates(), 1)
	require.Equal(t, driver.RolePrimary, early.Updates()[0].Role)

	// A listener registered after the description is cached sees nothing
	// until the next state change.
	late := &recordingListener{}
	s.AddChangeListener(late)
	require.Empty(t, late.Updates(), "no synthetic replay to new listeners")

	scheduler.runScheduled()
	require.Len(t, late.Errors(), 1)

	var perr *cerrors.ProbeError
	require.ErrorAs(t, late.Errors()[0], &perr)
	require.Equal(t, testAddress().String(), perr.Address)
}

// TestServerAddChangeListenerDeduplicates checks identity-based membership.
func TestServerAddChangeListenerDeduplicates(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, nil, scheduler)

	l := &recordingListener{}
	s.AddChangeListener(l)
	s.AddChangeListener(l)

	scheduler.runScheduled()
	require.Len(t, l.Updates(), 1, "a twice-registered listener must be notified once")
}

// TestServerSyncConnectionFailure checks the wrapper's invalidation path:
// the original error reaches the caller, the cache is cleared, and exactly
// one off-cycle probe is submitted.
func TestServerSyncConnectionFailure(t *testing.T) {
	scheduler := newManualScheduler()
	opErr := errors.New("write tcp: broken pipe")
	opConn := &fakeConnection{err: opErr}
	factory := &fakeFactory{script: []factoryResult{
		{conn: probeConn("primary")},
		{conn: opConn},
	}}
	s := newTestServer(t, factory, nil, scheduler)

	scheduler.runScheduled()
	require.NotNil(t, s.GetDescription())

	conn, err := s.GetConnection(context.Background())
	require.NoError(t, err)

	err = conn.SendMessage(context.Background(), nil)
	require.ErrorIs(t, err, opErr, "the original error must propagate unchanged")
	require.Nil(t, s.GetDescription(), "the failure must invalidate the cache")
	require.Equal(t, 1, scheduler.submittedCount(), "exactly one off-cycle probe")
}

// TestServerSyncConnectionClosedGuard checks the fail-fast guard: a closed
// wrapper rejects every operation without touching the wrapped connection.
func TestServerSyncConnectionClosedGuard(t *testing.T) {
	scheduler := newManualScheduler()
	opConn := &fakeConnection{reply: helloReply("primary")}
	factory := &fakeFactory{script: []factoryResult{{conn: opConn}}}
	s := newTestServer(t, factory, nil, scheduler)

	conn, err := s.GetConnection(context.Background())
	require.NoError(t, err)
	require.False(t, conn.IsClosed())

	require.NoError(t, conn.Close())
	require.True(t, conn.IsClosed())

	require.ErrorIs(t, conn.SendMessage(context.Background(), nil), cerrors.ErrConnClosed)
	_, err = conn.SendAndReceiveMessage(context.Background(), nil)
	require.ErrorIs(t, err, cerrors.ErrConnClosed)
	_, err = conn.ReceiveMessage(context.Background())
	require.ErrorIs(t, err, cerrors.ErrConnClosed)

	require.Empty(t, opConn.Calls(), "a closed wrapper must not touch the wrapped connection")
	require.Equal(t, 0, scheduler.submittedCount(), "guard violations must not invalidate")

	// Second close is a no-op.
	require.NoError(t, conn.Close())
	require.True(t, conn.IsClosed())
}

// TestServerConnectionReleasedToPool checks that closing a wrapper returns
// the raw connection for reuse rather than discarding it.
func TestServerConnectionReleasedToPool(t *testing.T) {
	scheduler := newManualScheduler()
	opConn := &fakeConnection{reply: helloReply("primary")}
	factory := &fakeFactory{script: []factoryResult{{conn: opConn}}}
	s := newTestServer(t, factory, nil, scheduler)

	conn, err := s.GetConnection(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	again, err := s.GetConnection(context.Background())
	require.NoError(t, err)
	defer func() { _ = again.Close() }()

	require.Equal(t, 1, factory.Creates(), "the released connection must be reused")
}

// TestServerGetConnectionPoolError checks pool/factory errors surface
// untouched.
func TestServerGetConnectionPoolError(t *testing.T) {
	scheduler := newManualScheduler()
	dialErr := errors.New("dial tcp: connection refused")
	factory := &fakeFactory{script: []factoryResult{{err: dialErr}}}
	s := newTestServer(t, factory, nil, scheduler)

	_, err := s.GetConnection(context.Background())
	require.ErrorIs(t, err, dialErr)
}

// TestServerAsyncUnsupported checks the capability error when no async
// factory was configured.
func TestServerAsyncUnsupported(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, nil, scheduler)

	_, err := s.GetAsyncConnection(context.Background())
	require.ErrorIs(t, err, cerrors.ErrAsyncUnsupported)
}

// TestServerAsyncConnectionFailure checks the callback-composed
// invalidation: a failed result invalidates the cache before the caller's
// callback observes it, and the original result is forwarded exactly once.
func TestServerAsyncConnectionFailure(t *testing.T) {
	scheduler := newManualScheduler()
	opErr := errors.New("read tcp: i/o timeout")
	asyncConn := &fakeAsyncConnection{err: opErr}
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, &fakeAsyncFactory{conn: asyncConn}, scheduler)

	scheduler.runScheduled()
	require.NotNil(t, s.GetDescription())

	conn, err := s.GetAsyncConnection(context.Background())
	require.NoError(t, err)

	forwards := 0
	conn.SendAndReceiveMessage(context.Background(), nil, func(reply *wire.Reply, cbErr error) {
		forwards++
		require.ErrorIs(t, cbErr, opErr, "the original error must be forwarded")
		require.Nil(t, s.GetDescription(),
			"invalidation must be visible from inside the callback")
	})

	require.Equal(t, 1, forwards, "exactly one forward per operation")
	require.Equal(t, 1, scheduler.submittedCount())
}

// TestServerAsyncConnectionSuccess checks that successful results forward
// without invalidating.
func TestServerAsyncConnectionSuccess(t *testing.T) {
	scheduler := newManualScheduler()
	asyncConn := &fakeAsyncConnection{reply: helloReply("primary")}
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, &fakeAsyncFactory{conn: asyncConn}, scheduler)

	scheduler.runScheduled()
	require.NotNil(t, s.GetDescription())

	conn, err := s.GetAsyncConnection(context.Background())
	require.NoError(t, err)

	done := false
	conn.ReceiveMessage(context.Background(), func(reply *wire.Reply, cbErr error) {
		done = true
		require.NoError(t, cbErr)
		require.NotNil(t, reply)
	})
	require.True(t, done)
	require.NotNil(t, s.GetDescription(), "a success must not invalidate")
	require.Equal(t, 0, scheduler.submittedCount())
}

// TestServerAsyncSendMessageUsesRoundTrip pins the wrapper's SendMessage
// delegating to the wrapped connection's send-and-receive.
func TestServerAsyncSendMessageUsesRoundTrip(t *testing.T) {
	scheduler := newManualScheduler()
	asyncConn := &fakeAsyncConnection{reply: helloReply("primary")}
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, &fakeAsyncFactory{conn: asyncConn}, scheduler)

	conn, err := s.GetAsyncConnection(context.Background())
	require.NoError(t, err)

	conn.SendMessage(context.Background(), nil, func(*wire.Reply, error) {})
	require.Equal(t, []string{"SendAndReceiveMessage"}, asyncConn.Calls())
}

// TestServerAsyncClosedGuard checks the async guard fails through the
// callback without touching the wrapped connection.
func TestServerAsyncClosedGuard(t *testing.T) {
	scheduler := newManualScheduler()
	asyncConn := &fakeAsyncConnection{reply: helloReply("primary")}
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, &fakeAsyncFactory{conn: asyncConn}, scheduler)

	conn, err := s.GetAsyncConnection(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.True(t, conn.IsClosed())

	var guardErr error
	conn.SendAndReceiveMessage(context.Background(), nil, func(_ *wire.Reply, cbErr error) {
		guardErr = cbErr
	})
	require.ErrorIs(t, guardErr, cerrors.ErrConnClosed)
	require.Empty(t, asyncConn.Calls())
}

// TestServerClose checks shutdown: the schedule stops, the monitor stops
// probing, pools reject further leases, and a second Close is a no-op.
func TestServerClose(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, nil, scheduler)

	scheduler.runScheduled()
	probes := factory.Creates()

	require.NoError(t, s.Close())
	require.Equal(t, 1, scheduler.stops)

	// A tick dispatched after close must not probe.
	scheduler.runScheduled()
	require.Equal(t, probes, factory.Creates(), "a run after close must be a no-op")

	_, err := s.GetConnection(context.Background())
	require.ErrorIs(t, err, cerrors.ErrServerClosed)
	_, err = s.GetAsyncConnection(context.Background())
	require.ErrorIs(t, err, cerrors.ErrServerClosed)

	require.NoError(t, s.Close(), "second close must be a no-op")
}

// TestServerAddress is the trivial accessor check.
func TestServerAddress(t *testing.T) {
	scheduler := newManualScheduler()
	factory := &fakeFactory{script: []factoryResult{{conn: probeConn("primary")}}}
	s := newTestServer(t, factory, nil, scheduler)

	require.Equal(t, testAddress(), s.Address())
}
