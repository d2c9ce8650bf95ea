package snapshot

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestDefaultWeather(t *testing.T) {
	w := DefaultWeather()
	if w.ConditionID != 501 || w.Low != "--°" || w.High != "--°" {
		t.Fatalf("DefaultWeather() = %+v", w)
	}
}

func TestDegreeFormatter(t *testing.T) {
	cases := []struct {
		metric bool
		in     float64
		want   string
	}{
		{true, 16.0, "16°"},
		{true, 28.0, "28°"},
		{true, -3.4, "-3°"},
		{false, 0, "32°"},
		{false, 100, "212°"},
	}
	for _, c := range cases {
		got := DegreeFormatter{Metric: c.metric}.Format(c.in)
		if got != c.want {
			t.Errorf("Format(%v, metric=%v) = %q, want %q", c.in, c.metric, got, c.want)
		}
	}
}

func TestFallbackSnapshot(t *testing.T) {
	got := DefaultFallback().Snapshot(DegreeFormatter{Metric: true})
	want := WeatherSnapshot{ConditionID: 501, Low: "16°", High: "28°"}
	if got != want {
		t.Fatalf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestClockSetToNowUsesZone(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 34, 56, 0, time.UTC)
	c := NewClock("Asia/Tokyo", now)
	if c.Zone != "Asia/Tokyo" {
		t.Fatalf("Zone = %q", c.Zone)
	}
	if c.Hour != 21 || c.Minute != 34 || c.Second != 56 {
		t.Fatalf("clock = %02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}

	if err := c.SetZone("UTC"); err != nil {
		t.Fatal(err)
	}
	c.SetToNow(now)
	if c.Hour != 12 {
		t.Fatalf("Hour after zone switch = %d", c.Hour)
	}
}

func TestClockBadZoneKeepsPrevious(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	c := NewClock("UTC", now)
	if err := c.SetZone("Not/AZone"); err == nil {
		t.Fatal("SetZone accepted an unknown zone")
	}
	if c.Zone != "UTC" {
		t.Fatalf("Zone = %q, want UTC", c.Zone)
	}
}
