// Package weathersub keeps the single weather subscription of the face and
// turns provider rows into weather snapshots.
package weathersub

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakaisatoru/go_sunshine_face/snapshot"
)

// Column positions in a provider row.
const (
	ColMaxTemp     = 3
	ColMinTemp     = 4
	ColConditionID = 9
	ColumnCount    = 10
)

// Row is one provider row. Only the columns above are read.
type Row []any

// Query asks for the most recent weather at or before AsOf for Location.
type Query struct {
	Location string
	AsOf     time.Time
}

// Subscription is an open provider query.
type Subscription interface {
	Cancel()
}

// Provider answers weather queries asynchronously. deliver may be called
// more than once while the subscription is open, from any goroutine.
type Provider interface {
	Subscribe(q Query, deliver func(rows []Row)) (Subscription, error)
}

// ErrAlreadyStarted is returned by Start while a subscription is open.
var ErrAlreadyStarted = errors.New("weathersub: subscription already started")

// Options configure a Subscriber.
type Options struct {
	Formatter snapshot.TemperatureFormatter
	Fallback  snapshot.Fallback
	// Deliver receives provider rows tagged with the subscription id. The
	// engine uses it to move rows onto its loop before calling
	// Subscriber.Deliver.
	Deliver func(id uint64, rows []Row)
	Logger  *slog.Logger
}

// Subscriber owns at most one outstanding subscription.
type Subscriber struct {
	provider Provider
	opts     Options

	sub  Subscription
	id   uint64
	live bool
}

// New returns a stopped subscriber.
func New(p Provider, opts Options) *Subscriber {
	if opts.Formatter == nil {
		opts.Formatter = snapshot.DegreeFormatter{Metric: true}
	}
	if opts.Fallback == (snapshot.Fallback{}) {
		opts.Fallback = snapshot.DefaultFallback()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Deliver == nil {
		opts.Deliver = func(uint64, []Row) {}
	}
	return &Subscriber{provider: p, opts: opts}
}

// Start opens the subscription for q.
func (s *Subscriber) Start(q Query) error {
	if s.live {
		return ErrAlreadyStarted
	}
	s.id++
	id := s.id
	deliver := s.opts.Deliver
	sub, err := s.provider.Subscribe(q, func(rows []Row) { deliver(id, rows) })
	if err != nil {
		return fmt.Errorf("weathersub: subscribe %q: %w", q.Location, err)
	}
	s.sub = sub
	s.live = true
	s.opts.Logger.Debug("weathersub: started", "location", q.Location, "as_of", q.AsOf, "id", id)
	return nil
}

// Stop cancels the subscription. It is a no-op when nothing is open.
func (s *Subscriber) Stop() {
	if !s.live {
		return
	}
	s.live = false
	s.sub.Cancel()
	s.sub = nil
	s.opts.Logger.Debug("weathersub: stopped", "id", s.id)
}

// Live reports whether a subscription is open.
func (s *Subscriber) Live() bool { return s.live }

// Deliver converts rows delivered for subscription id. It reports false when
// the delivery belongs to a stopped or replaced subscription and must be
// ignored.
func (s *Subscriber) Deliver(id uint64, rows []Row) (snapshot.WeatherSnapshot, bool) {
	if !s.live || id != s.id {
		return snapshot.WeatherSnapshot{}, false
	}
	w, err := Decode(rows, s.opts.Formatter, s.opts.Fallback)
	if err != nil {
		s.opts.Logger.Warn("weathersub: bad row, using fallback", "error", err)
	}
	return w, true
}

// Decode builds a snapshot from the first row. No rows, or a row that does
// not follow the column contract, yield the fallback.
func Decode(rows []Row, f snapshot.TemperatureFormatter, fb snapshot.Fallback) (snapshot.WeatherSnapshot, error) {
	if len(rows) == 0 {
		return fb.Snapshot(f), nil
	}
	row := rows[0]
	if len(row) < ColumnCount {
		return fb.Snapshot(f), fmt.Errorf("weathersub: row has %d columns, want %d", len(row), ColumnCount)
	}
	id, err := asInt(row[ColConditionID])
	if err != nil {
		return fb.Snapshot(f), fmt.Errorf("weathersub: condition id: %w", err)
	}
	low, err := asFloat(row[ColMinTemp])
	if err != nil {
		return fb.Snapshot(f), fmt.Errorf("weathersub: min temp: %w", err)
	}
	high, err := asFloat(row[ColMaxTemp])
	if err != nil {
		return fb.Snapshot(f), fmt.Errorf("weathersub: max temp: %w", err)
	}
	return snapshot.WeatherSnapshot{
		ConditionID: id,
		Low:         f.Format(low),
		High:        f.Format(high),
	}, nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("unexpected %T", v)
}
