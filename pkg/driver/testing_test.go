package driver_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/corvusdb/corvus-go/pkg/driver"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

// manualScheduler records scheduling calls and runs tasks only when the
// test asks, so probe timing is fully deterministic.
type manualScheduler struct {
	mu        sync.Mutex
	scheduled []scheduledTask
	submitted []func()
	stops     int
}

type scheduledTask struct {
	task         func()
	initialDelay time.Duration
	period       time.Duration
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{}
}

func (s *manualScheduler) ScheduleAtFixedRate(task func(), initialDelay, period time.Duration) driver.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, scheduledTask{task, initialDelay, period})
	return manualHandle{s}
}

func (s *manualScheduler) Submit(task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, task)
}

// runScheduled fires every recurring task once, on the caller's goroutine.
func (s *manualScheduler) runScheduled() {
	s.mu.Lock()
	tasks := make([]scheduledTask, len(s.scheduled))
	copy(tasks, s.scheduled)
	s.mu.Unlock()

	for _, t := range tasks {
		t.task()
	}
}

// runSubmitted drains and runs all one-off submissions.
func (s *manualScheduler) runSubmitted() {
	s.mu.Lock()
	tasks := s.submitted
	s.submitted = nil
	s.mu.Unlock()

	for _, t := range tasks {
		t()
	}
}

func (s *manualScheduler) submittedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

type manualHandle struct {
	s *manualScheduler
}

func (h manualHandle) Stop() {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.s.stops++
}

// fakeConnection is a scriptable driver.Connection that records every call.
type fakeConnection struct {
	mu      sync.Mutex
	address driver.Address
	calls   []string
	reply   *wire.Reply // Returned by receive operations when err is nil
	err     error       // Returned by every operation when set
	closed  bool
}

func (c *fakeConnection) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeConnection) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *fakeConnection) Address() driver.Address { return c.address }

func (c *fakeConnection) SendMessage(ctx context.Context, msg *wire.Message) error {
	c.record("SendMessage")
	return c.err
}

func (c *fakeConnection) SendAndReceiveMessage(ctx context.Context, msg *wire.Message) (*wire.Reply, error) {
	c.record("SendAndReceiveMessage")
	if c.err != nil {
		return nil, c.err
	}
	return c.reply, nil
}

func (c *fakeConnection) ReceiveMessage(ctx context.Context) (*wire.Reply, error) {
	c.record("ReceiveMessage")
	if c.err != nil {
		return nil, c.err
	}
	return c.reply, nil
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeFactory hands out scripted connections in order. Once the script is
// exhausted it keeps returning the last entry.
type fakeFactory struct {
	mu      sync.Mutex
	script  []factoryResult
	creates int
}

type factoryResult struct {
	conn *fakeConnection
	err  error
}

func (f *fakeFactory) Create(ctx context.Context, address driver.Address) (driver.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++

	i := f.creates - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	r := f.script[i]
	if r.err != nil {
		return nil, r.err
	}
	return r.conn, nil
}

func (f *fakeFactory) Creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// fakeAsyncConnection completes every operation synchronously with the
// scripted result, recording the calls it saw.
type fakeAsyncConnection struct {
	mu      sync.Mutex
	address driver.Address
	calls   []string
	reply   *wire.Reply
	err     error
	closed  bool
}

func (c *fakeAsyncConnection) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeAsyncConnection) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *fakeAsyncConnection) Address() driver.Address { return c.address }

func (c *fakeAsyncConnection) SendMessage(ctx context.Context, msg *wire.Message, callback driver.ResultCallback) {
	c.record("SendMessage")
	callback(c.reply, c.err)
}

func (c *fakeAsyncConnection) SendAndReceiveMessage(ctx context.Context, msg *wire.Message, callback driver.ResultCallback) {
	c.record("SendAndReceiveMessage")
	callback(c.reply, c.err)
}

func (c *fakeAsyncConnection) ReceiveMessage(ctx context.Context, callback driver.ResultCallback) {
	c.record("ReceiveMessage")
	callback(c.reply, c.err)
}

func (c *fakeAsyncConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeAsyncConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeAsyncFactory struct {
	conn *fakeAsyncConnection
	err  error
}

func (f *fakeAsyncFactory) Create(ctx context.Context, address driver.Address) (driver.AsyncConnection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

// recordingListener captures broadcasts for assertions.
type recordingListener struct {
	mu      sync.Mutex
	updates []*driver.Description
	errors  []error
}

func (l *recordingListener) DescriptionUpdated(description *driver.Description) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, description)
}

func (l *recordingListener) Error(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, err)
}

func (l *recordingListener) Updates() []*driver.Description {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*driver.Description, len(l.updates))
	copy(out, l.updates)
	return out
}

func (l *recordingListener) Errors() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]error, len(l.errors))
	copy(out, l.errors)
	return out
}

// helloReply builds the wire reply a node would send for the hello command.
func helloReply(role string) *wire.Reply {
	body, _ := json.Marshal(map[string]any{"ok": 1, "role": role})
	return &wire.Reply{OpCode: wire.OpReply, Body: body}
}

// probeConn returns a fake connection that answers the hello probe with the
// given role.
func probeConn(role string) *fakeConnection {
	return &fakeConnection{reply: helloReply(role)}
}

func testAddress() driver.Address {
	return driver.Address{Host: "db0.example.com", Port: 27717}
}
