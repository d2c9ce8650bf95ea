// Package weatherfetch downloads daily forecasts from OpenWeatherMap and
// stores them in the weather database, which pushes them on to the face.
package weatherfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"

	"github.com/sakaisatoru/go_sunshine_face/weatherdb"
)

// ErrNoForecast is returned when the service answers without any days.
var ErrNoForecast = errors.New("weatherfetch: empty forecast")

// Saver is where fetched forecasts go.
type Saver interface {
	Save(ctx context.Context, loc weatherdb.Location, days []weatherdb.Day) error
}

type Options struct {
	URL    string
	APIKey string
	Days   int
	Client *http.Client
	Logger *slog.Logger
}

type Fetcher struct {
	store Saver
	opts  Options
	log   *slog.Logger
}

func New(store Saver, opts Options) *Fetcher {
	if opts.Days <= 0 {
		opts.Days = 14
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Fetcher{store: store, opts: opts, log: opts.Logger}
}

// forecast is the subset of the daily forecast response that is stored.
type forecast struct {
	City struct {
		Name  string `json:"name"`
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
		Speed    float64 `json:"speed"`
		Deg      float64 `json:"deg"`
		Weather  []struct {
			ID   int    `json:"id"`
			Main string `json:"main"`
		} `json:"weather"`
	} `json:"list"`
}

// Fetch downloads the forecast for location. Temperatures are requested in
// Celsius; the face converts for display.
func (f *Fetcher) Fetch(ctx context.Context, location string) (weatherdb.Location, []weatherdb.Day, error) {
	var fc forecast
	rb := requests.
		URL(f.opts.URL).
		Client(f.opts.Client).
		Param("q", location).
		Param("mode", "json").
		Param("units", "metric").
		Param("cnt", strconv.Itoa(f.opts.Days)).
		ToJSON(&fc)
	if f.opts.APIKey != "" {
		rb.Param("APPID", f.opts.APIKey)
	}
	if err := rb.Fetch(ctx); err != nil {
		return weatherdb.Location{}, nil, fmt.Errorf("weatherfetch: %s: %w", location, err)
	}
	if len(fc.List) == 0 {
		return weatherdb.Location{}, nil, fmt.Errorf("%w for %s", ErrNoForecast, location)
	}

	loc := weatherdb.Location{
		Setting: location,
		City:    fc.City.Name,
		Lat:     fc.City.Coord.Lat,
		Lon:     fc.City.Coord.Lon,
	}
	days := make([]weatherdb.Day, 0, len(fc.List))
	for _, d := range fc.List {
		day := weatherdb.Day{
			Date:     time.Unix(d.Dt, 0).UTC(),
			Min:      d.Temp.Min,
			Max:      d.Temp.Max,
			Humidity: d.Humidity,
			Pressure: d.Pressure,
			Wind:     d.Speed,
			Degrees:  d.Deg,
		}
		if len(d.Weather) > 0 {
			day.ConditionID = d.Weather[0].ID
			day.ShortDesc = strings.TrimSpace(d.Weather[0].Main)
		}
		days = append(days, day)
	}
	return loc, days, nil
}

// Refresh fetches location and saves the result.
func (f *Fetcher) Refresh(ctx context.Context, location string) error {
	loc, days, err := f.Fetch(ctx, location)
	if err != nil {
		return err
	}
	if err := f.store.Save(ctx, loc, days); err != nil {
		return fmt.Errorf("weatherfetch: save: %w", err)
	}
	f.log.Info("weatherfetch: forecast updated", "location", location, "city", loc.City, "days", len(days))
	return nil
}

// Run refreshes immediately and then every interval until ctx ends.
// location is asked each time so a changed preference is picked up.
// Failures are logged; the face keeps showing what it has.
func (f *Fetcher) Run(ctx context.Context, interval time.Duration, location func() string) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := f.Refresh(ctx, location()); err != nil && ctx.Err() == nil {
			f.log.Warn("weatherfetch: refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
