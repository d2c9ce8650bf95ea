package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sakaisatoru/go_sunshine_face/displaymodel"
	"github.com/sakaisatoru/go_sunshine_face/modectl"
	"github.com/sakaisatoru/go_sunshine_face/scheduler"
	"github.com/sakaisatoru/go_sunshine_face/snapshot"
	"github.com/sakaisatoru/go_sunshine_face/tzsignal"
	"github.com/sakaisatoru/go_sunshine_face/weathersub"
)

type monoMeasure struct{}

func (monoMeasure) Width(p modectl.Paint, s string) float64 {
	return float64(len([]rune(s))) * p.Size / 2
}

func (monoMeasure) Height(p modectl.Paint, s string) float64 { return p.Size }

type recorder struct {
	mu    sync.Mutex
	plans []displaymodel.Plan
	ch    chan displaymodel.Plan
}

func (r *recorder) Render(p displaymodel.Plan) error {
	r.mu.Lock()
	r.plans = append(r.plans, p)
	r.mu.Unlock()
	if r.ch != nil {
		r.ch <- p
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plans)
}

type fakeSub struct {
	mu        sync.Mutex
	cancelled int
}

func (s *fakeSub) Cancel() {
	s.mu.Lock()
	s.cancelled++
	s.mu.Unlock()
}

type fakeProvider struct {
	mu      sync.Mutex
	queries []weathersub.Query
	deliver func([]weathersub.Row)
	sub     *fakeSub
}

func (p *fakeProvider) Subscribe(q weathersub.Query, deliver func([]weathersub.Row)) (weathersub.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)
	p.deliver = deliver
	p.sub = &fakeSub{}
	return p.sub, nil
}

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type timers struct {
	mu  sync.Mutex
	all []*fakeTimer
}

func (ts *timers) after(d time.Duration, f func()) scheduler.Timer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &fakeTimer{}
	t.f = func() {
		t.stopped = true
		f()
	}
	ts.all = append(ts.all, t)
	return t
}

func (ts *timers) live() []*fakeTimer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var out []*fakeTimer
	for _, t := range ts.all {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

type prefs struct {
	loc string
	err error
}

func (p prefs) PreferredLocation(context.Context) (string, error) { return p.loc, p.err }

type fixture struct {
	e      *Engine
	rec    *recorder
	prov   *fakeProvider
	timers *timers
	tz     *tzsignal.Broadcaster
}

func newFixture(t *testing.T, pref Preferences) *fixture {
	t.Helper()
	f := &fixture{rec: &recorder{}, prov: &fakeProvider{}, timers: &timers{}, tz: tzsignal.New()}
	now := time.Date(2026, 10, 15, 7, 5, 0, 500_000_000, time.UTC)
	e, err := New(Options{
		Width:           320,
		Height:          320,
		Layout:          displaymodel.Layout{YOffset: 100, DateMargin: 10, LineWidth: 60},
		Sizes:           modectl.TextSizes{Default: 40, Round: 45, Small: 20},
		Measure:         monoMeasure{},
		Renderer:        f.rec,
		Provider:        f.prov,
		Preferences:     pref,
		DefaultLocation: "94043",
		Formatter:       snapshot.DegreeFormatter{Metric: true},
		ZoneSignal:      f.tz,
		LocalZone:       func() string { return "UTC" },
		Now:             func() time.Time { return now },
		After:           f.timers.after,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.e = e
	return f
}

// step runs queued events through the loop body without starting Run.
func (f *fixture) step() {
	events := f.e.handle.events()
	for {
		select {
		case ev := <-events:
			f.e.dispatch(ev)
		default:
			f.e.flush()
			return
		}
	}
}

func TestCreateUsesPreferredLocation(t *testing.T) {
	f := newFixture(t, prefs{loc: "Tokyo"})
	f.e.create(context.Background())
	if len(f.prov.queries) != 1 || f.prov.queries[0].Location != "Tokyo" {
		t.Fatalf("queries = %+v", f.prov.queries)
	}
}

func TestCreateFallsBackToDefaultLocation(t *testing.T) {
	f := newFixture(t, prefs{err: errors.New("no row")})
	f.e.create(context.Background())
	if f.prov.queries[0].Location != "94043" {
		t.Fatalf("location = %q", f.prov.queries[0].Location)
	}
}

func TestVisibleInteractiveArmsTickAndRedraws(t *testing.T) {
	f := newFixture(t, nil)
	f.e.create(context.Background())
	f.e.VisibilityChanged(true)
	f.step()

	if !f.e.sched.Armed() || len(f.timers.live()) != 1 {
		t.Fatalf("tick armed=%v live=%d", f.e.sched.Armed(), len(f.timers.live()))
	}
	if f.rec.count() != 1 {
		t.Fatalf("%d frames, want 1", f.rec.count())
	}
	if f.tz.Receivers() != 1 {
		t.Fatalf("%d zone receivers, want 1", f.tz.Receivers())
	}
}

func TestTickRedrawsAndRearms(t *testing.T) {
	f := newFixture(t, nil)
	f.e.VisibilityChanged(true)
	f.step()

	f.timers.live()[0].f()
	f.step()
	if f.rec.count() != 2 {
		t.Fatalf("%d frames, want 2", f.rec.count())
	}
	if live := f.timers.live(); len(live) != 1 || live[0] == f.timers.all[0] {
		t.Fatal("tick did not rearm exactly once")
	}
}

func TestAmbientStopsTick(t *testing.T) {
	f := newFixture(t, nil)
	f.e.VisibilityChanged(true)
	f.step()
	first := f.timers.live()[0]

	f.e.AmbientModeChanged(true)
	f.step()
	if f.e.sched.Armed() || len(f.timers.live()) != 0 {
		t.Fatal("tick still armed in ambient mode")
	}

	// The cancelled tick fires anyway; it must not redraw.
	frames := f.rec.count()
	first.f()
	f.step()
	if f.rec.count() != frames {
		t.Fatal("cancelled tick caused a redraw")
	}

	// The host's minute tick still redraws in ambient mode.
	f.e.TimeTick()
	f.step()
	if f.rec.count() != frames+1 {
		t.Fatal("minute tick did not redraw")
	}
}

func TestLowBitAmbientPlanDropsAntiAlias(t *testing.T) {
	f := newFixture(t, nil)
	f.e.PropertiesChanged(true)
	f.e.VisibilityChanged(true)
	f.e.AmbientModeChanged(true)
	f.step()

	last := f.rec.plans[len(f.rec.plans)-1]
	for _, txt := range last.Texts() {
		if txt.Paint.AntiAlias {
			t.Fatalf("%s anti-aliased in low-bit ambient", txt.Surface)
		}
	}
}

func TestWeatherDeliveryRedraws(t *testing.T) {
	f := newFixture(t, nil)
	f.e.create(context.Background())
	f.e.VisibilityChanged(true)
	f.step()

	row := make(weathersub.Row, weathersub.ColumnCount)
	row[weathersub.ColMaxTemp] = 30.0
	row[weathersub.ColMinTemp] = 18.0
	row[weathersub.ColConditionID] = int64(800)
	f.prov.deliver([]weathersub.Row{row})
	f.step()

	last := f.rec.plans[len(f.rec.plans)-1]
	if last.High.Text != "30°" || last.Low.Text != "18°" || last.Icon.Name != displaymodel.IconClear {
		t.Fatalf("plan weather = %q %q %q", last.High.Text, last.Low.Text, last.Icon.Name)
	}
}

func TestEmptyWeatherDeliveryShowsFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.e.create(context.Background())
	f.e.VisibilityChanged(true)
	f.prov.deliver(nil)
	f.step()

	if f.e.weather != (snapshot.WeatherSnapshot{ConditionID: 501, Low: "16°", High: "28°"}) {
		t.Fatalf("weather = %+v", f.e.weather)
	}
}

type blankingRecorder struct {
	recorder
	power []string
}

func (r *blankingRecorder) Blank() error { r.power = append(r.power, "blank"); return nil }
func (r *blankingRecorder) Wake() error { r.power = append(r.power, "wake"); return nil }

func TestVisibilitySwitchesPanelPower(t *testing.T) {
	f := newFixture(t, nil)
	r := &blankingRecorder{}
	f.e.opts.Renderer = r

	f.e.VisibilityChanged(true)
	f.e.VisibilityChanged(true)
	f.step()
	f.e.VisibilityChanged(false)
	f.e.VisibilityChanged(false)
	f.step()
	f.e.VisibilityChanged(true)
	f.step()

	if got := strings.Join(r.power, ","); got != "wake,blank,wake" {
		t.Fatalf("power = %s", got)
	}
	if r.count() != 2 {
		t.Fatalf("%d frames, want 2", r.count())
	}
}

func TestHiddenDoesNotRender(t *testing.T) {
	f := newFixture(t, nil)
	f.e.create(context.Background())
	f.prov.deliver(nil)
	f.step()
	if f.rec.count() != 0 {
		t.Fatal("rendered while hidden")
	}
}

func TestTimeZoneBroadcastResamples(t *testing.T) {
	f := newFixture(t, nil)
	f.e.VisibilityChanged(true)
	f.step()

	f.tz.Publish("Asia/Tokyo")
	f.step()
	last := f.rec.plans[len(f.rec.plans)-1]
	if last.Hour.Text != "16" {
		t.Fatalf("hour after zone change = %q, want 16", last.Hour.Text)
	}

	f.e.VisibilityChanged(false)
	f.step()
	if f.tz.Receivers() != 0 {
		t.Fatal("zone receiver still registered while hidden")
	}
}

func TestRunTeardownMakesLateCallbacksNoOps(t *testing.T) {
	f := newFixture(t, nil)
	f.rec.ch = make(chan displaymodel.Plan, 8)
	done := make(chan error, 1)
	go func() { done <- f.e.Run(context.Background()) }()

	f.e.VisibilityChanged(true)
	select {
	case <-f.rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame rendered")
	}

	f.e.Destroy()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Destroy")
	}

	if f.e.Handle().Live() {
		t.Fatal("handle still live after teardown")
	}
	if f.e.sched.Armed() {
		t.Fatal("tick still armed after teardown")
	}
	if f.prov.sub.cancelled != 1 {
		t.Fatalf("weather subscription cancelled %d times, want 1", f.prov.sub.cancelled)
	}
	if f.tz.Receivers() != 0 {
		t.Fatal("zone receiver survived teardown")
	}

	// Late callbacks from every asynchronous source.
	for _, tm := range f.timers.all {
		tm.f()
	}
	f.prov.deliver(nil)
	f.tz.Publish("UTC")
	f.e.VisibilityChanged(true)

	if err := f.e.Run(context.Background()); err == nil {
		t.Fatal("second Run succeeded")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.e.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
	if f.e.Handle().Live() {
		t.Fatal("handle still live")
	}
}
