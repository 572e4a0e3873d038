package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"FxSentinel/internal/collector"
	"FxSentinel/internal/model"
	"FxSentinel/internal/recorder"
	"FxSentinel/internal/state"
)

var base = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

// fakeClock hands every wait to the test, which decides when it fires.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits chan fakeWait
}

type fakeWait struct {
	d  time.Duration
	ch chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, waits: make(chan fakeWait)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.waits <- fakeWait{d: d, ch: ch}
	return ch
}

// fire advances the clock by the pending wait and releases it.
func (c *fakeClock) fire(t *testing.T) time.Duration {
	t.Helper()
	select {
	case w := <-c.waits:
		c.mu.Lock()
		c.now = c.now.Add(w.d)
		now := c.now
		c.mu.Unlock()
		w.ch <- now
		return w.d
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not wait")
		return 0
	}
}

// fakeSource serves a rising hourly series whose newest bar closed at the hour of now.
type fakeSource struct {
	mu    sync.Mutex
	calls []time.Time
	fail  map[string]bool
}

func (f *fakeSource) Collect(_ context.Context, symbol string, now time.Time) (model.BarSet, error) {
	f.mu.Lock()
	f.calls = append(f.calls, now)
	fail := f.fail[symbol]
	f.mu.Unlock()
	if fail {
		return model.BarSet{}, fmt.Errorf("%w: %s", collector.ErrDataUnavailable, symbol)
	}

	n := 6 + int(now.Sub(base)/time.Hour)
	last := now.Truncate(time.Hour)
	hourly := make([]model.Bar, n)
	for i := range hourly {
		open := 1.1 + float64(i)*0.001
		hourly[i] = model.Bar{
			Time:  last.Add(time.Duration(i-n) * time.Hour),
			Open:  open,
			High:  open + 0.0015,
			Low:   open - 0.0005,
			Close: open + 0.001,
		}
	}
	return model.BarSet{Symbol: symbol, Hourly: hourly, FetchedAt: now}, nil
}

func (f *fakeSource) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	statuses []string
	sent     []string
	err      error
}

func (n *fakeNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return n.err
}

func (n *fakeNotifier) ReplaceStatus(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, text)
	return n.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	signals []recorder.SignalEvent
	cycles  []recorder.CycleEvent
}

func (r *fakeRecorder) RecordSignal(evt *recorder.SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, *evt)
	return nil
}

func (r *fakeRecorder) RecordCycle(evt *recorder.CycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycles = append(r.cycles, *evt)
	return nil
}

func (r *fakeRecorder) Close() error { return nil }

type fakePublisher struct {
	published [][]model.SignalState
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, states []model.SignalState) error {
	p.published = append(p.published, states)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		from    time.Time
		want    time.Time
		wantErr bool
	}{
		{"0 */5 * * * *", base.Add(3*time.Minute + 20*time.Second), base.Add(5 * time.Minute), false},
		{"0 */5 * * * *", base.Add(5 * time.Minute), base.Add(10 * time.Minute), false},
		{"0 0 * * * *", base.Add(time.Second), base.Add(time.Hour), false},
		{"@every 1m", base, base.Add(time.Minute), false},
		{"*/5 * * * *", base, time.Time{}, true},
		{"not a schedule", base, time.Time{}, true},
	}
	for _, tt := range tests {
		sched, err := ParseSchedule(tt.spec)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.spec)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.spec, err)
		}
		if got := sched.Next(tt.from); !got.Equal(tt.want) {
			t.Errorf("%q from %v: expected %v, got %v", tt.spec, tt.from, tt.want, got)
		}
	}
}

func TestScheduler_RunWaitsForBoundaries(t *testing.T) {
	clock := newFakeClock(base.Add(3*time.Minute + 20*time.Second))
	src := &fakeSource{}
	orch := NewOrchestrator([]string{"EURUSD=X"}, src, state.NewTable(), WithClock(clock))
	s, err := NewScheduler("0 */5 * * * *", clock, orch, false)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	if d := clock.fire(t); d != 100*time.Second {
		t.Errorf("expected first wait of 1m40s, got %v", d)
	}
	if d := clock.fire(t); d != 5*time.Minute {
		t.Errorf("expected second wait of 5m, got %v", d)
	}

	// The third wait is pending; cancelling must stop the loop.
	go func() { <-clock.waits }()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	calls := src.callTimes()
	if len(calls) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(calls))
	}
	if !calls[0].Equal(base.Add(5*time.Minute)) || !calls[1].Equal(base.Add(10*time.Minute)) {
		t.Errorf("cycles not stamped with boundaries: %v", calls)
	}
}

func TestScheduler_RunOnStart(t *testing.T) {
	start := base.Add(90 * time.Second)
	clock := newFakeClock(start)
	src := &fakeSource{}
	orch := NewOrchestrator([]string{"EURUSD=X"}, src, state.NewTable(), WithClock(clock))
	s, _ := NewScheduler("0 */5 * * * *", clock, orch, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The start-up cycle has run by the time the loop first waits.
	w := <-clock.waits
	if w.d != 210*time.Second {
		t.Errorf("expected wait to 12:05, got %v", w.d)
	}
	cancel()
	<-done

	if calls := src.callTimes(); len(calls) != 1 || !calls[0].Equal(start) {
		t.Errorf("expected one cycle at start, got %v", calls)
	}
}

func TestOrchestrator_RunCycle(t *testing.T) {
	instruments := []string{"EURUSD=X", "USDJPY=X", "GBPUSD=X"}
	src := &fakeSource{fail: map[string]bool{"USDJPY=X": true}}
	notif := &fakeNotifier{}
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	table := state.NewTable()

	orch := NewOrchestrator(instruments, src, table,
		WithNotifier(notif), WithRecorder(rec), WithPublisher(pub),
		WithWorkers(2), WithIDGenerator(func() string { return "cycle-1" }))

	res := orch.RunCycle(context.Background(), base)

	if res.ID != "cycle-1" || !res.At.Equal(base) {
		t.Errorf("unexpected result header %+v", res)
	}
	if len(res.Updated) != 2 || res.Updated[0].Instrument != "EURUSD=X" || res.Updated[1].Instrument != "GBPUSD=X" {
		t.Fatalf("expected updates in configured order, got %+v", res.Updated)
	}
	if !errors.Is(res.Failed["USDJPY=X"], collector.ErrDataUnavailable) {
		t.Errorf("expected USDJPY failure, got %v", res.Failed)
	}
	if _, ok := table.Snapshot("USDJPY=X"); ok {
		t.Error("failed instrument should not be registered")
	}

	if len(notif.statuses) != 1 {
		t.Fatalf("expected one status message, got %d", len(notif.statuses))
	}
	if len(pub.published) != 1 || len(pub.published[0]) != 2 {
		t.Errorf("expected 2 snapshots published, got %v", pub.published)
	}
	if len(rec.cycles) != 1 || rec.cycles[0].Failed != 1 || rec.cycles[0].Tracked != 2 {
		t.Errorf("unexpected cycle record %+v", rec.cycles)
	}
}

func TestOrchestrator_JournalsOnlyTransitions(t *testing.T) {
	src := &fakeSource{}
	rec := &fakeRecorder{}
	table := state.NewTable()
	orch := NewOrchestrator([]string{"EURUSD=X"}, src, table, WithRecorder(rec), WithIDGenerator(func() string { return "c" }))

	// Three rising bars label the first observation bullish.
	orch.RunCycle(context.Background(), base)
	if len(rec.signals) != 1 {
		t.Fatalf("expected one transition, got %d", len(rec.signals))
	}
	evt := rec.signals[0]
	if evt.PrevSign != model.SignNone || evt.Sign != model.SignBullish || evt.TrendBars != 1 {
		t.Errorf("unexpected transition %+v", evt)
	}
	if evt.PrevClass != model.VolatilityNormal || evt.Class != model.VolatilityNormal || evt.CycleID != "c" {
		t.Errorf("unexpected transition %+v", evt)
	}

	// A new bar extends the run without changing the label.
	orch.RunCycle(context.Background(), base.Add(time.Hour))
	if s, _ := table.Snapshot("EURUSD=X"); s.Trend.TrendBars != 2 {
		t.Errorf("expected run of 2, got %d", s.Trend.TrendBars)
	}
	// Re-running the same window changes nothing either.
	orch.RunCycle(context.Background(), base.Add(time.Hour))
	if len(rec.signals) != 1 {
		t.Errorf("expected no new transition, got %d", len(rec.signals))
	}
	if len(rec.cycles) != 3 {
		t.Errorf("expected 3 cycle records, got %d", len(rec.cycles))
	}
}

func TestOrchestrator_NoUpdatesSendsNothing(t *testing.T) {
	src := &fakeSource{fail: map[string]bool{"EURUSD=X": true}}
	notif := &fakeNotifier{}
	pub := &fakePublisher{}
	orch := NewOrchestrator([]string{"EURUSD=X"}, src, state.NewTable(),
		WithNotifier(notif), WithPublisher(pub))

	res := orch.RunCycle(context.Background(), base)
	if len(res.Updated) != 0 || len(notif.statuses) != 0 || len(pub.published) != 0 {
		t.Errorf("expected nothing reported, got %+v", res)
	}
}

func TestOrchestrator_CollaboratorErrorsDoNotAbort(t *testing.T) {
	src := &fakeSource{}
	notif := &fakeNotifier{err: errors.New("telegram down")}
	pub := &fakePublisher{err: errors.New("redis down")}
	orch := NewOrchestrator([]string{"EURUSD=X"}, src, state.NewTable(),
		WithNotifier(notif), WithPublisher(pub))

	res := orch.RunCycle(context.Background(), base)
	if len(res.Updated) != 1 || len(res.Failed) != 0 {
		t.Errorf("expected cycle to complete, got %+v", res)
	}
	if len(pub.published) != 1 {
		t.Error("publisher should run after a notifier failure")
	}
}

func TestOrchestrator_Announce(t *testing.T) {
	notif := &fakeNotifier{}
	orch := NewOrchestrator([]string{"EURUSD=X"}, &fakeSource{}, state.NewTable(),
		WithNotifier(notif), WithClock(newFakeClock(base)))
	orch.Announce(context.Background())
	if len(notif.sent) != 1 || !strings.Contains(notif.sent[0], "Forex Monitor Started") {
		t.Errorf("unexpected startup messages %v", notif.sent)
	}
}

func TestOrchestrator_HandleCommand(t *testing.T) {
	orch := NewOrchestrator([]string{"EURUSD=X", "USDJPY=X"}, &fakeSource{}, state.NewTable(),
		WithClock(newFakeClock(base)))
	orch.RunCycle(context.Background(), base)

	tests := []struct {
		command string
		want    string
	}{
		{"/status", "<b>USDJPY</b>"},
		{"/status@fx_bot", "<b>EURUSD</b>"},
		{"/pair eurusd", "<b>EURUSD</b>"},
		{"/pair USD/JPY", "<b>USDJPY</b>"},
		{"/pair GBPUSD", "not tracked"},
		{"/pair", "Usage"},
		{"/help", "/status"},
		{"hello", "Commands"},
	}
	for _, tt := range tests {
		if got := orch.HandleCommand(tt.command); !strings.Contains(got, tt.want) {
			t.Errorf("%q: expected %q in reply, got %q", tt.command, tt.want, got)
		}
	}
}
