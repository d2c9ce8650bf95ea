package displaymodel

import (
	"testing"
	"time"

	"github.com/sakaisatoru/go_sunshine_face/modectl"
	"github.com/sakaisatoru/go_sunshine_face/snapshot"
)

// monoMeasure treats every rune as size/2 wide and size tall.
type monoMeasure struct{}

func (monoMeasure) Width(p modectl.Paint, s string) float64 {
	return float64(len([]rune(s))) * p.Size / 2
}

func (monoMeasure) Height(p modectl.Paint, s string) float64 { return p.Size }

func input(t *testing.T) Input {
	t.Helper()
	now := time.Date(2026, 10, 15, 7, 5, 42, 0, time.UTC)
	clock := snapshot.NewClock("UTC", now)
	var paints [modectl.SurfaceCount]modectl.Paint
	paints[modectl.Hour] = modectl.Paint{Size: 40, Bold: true}
	paints[modectl.Minute] = modectl.Paint{Size: 40}
	paints[modectl.Date] = modectl.Paint{Size: 20}
	paints[modectl.High] = modectl.Paint{Size: 20, Bold: true}
	paints[modectl.Low] = modectl.Paint{Size: 20}
	return Input{
		Clock:   *clock,
		Weather: snapshot.WeatherSnapshot{ConditionID: 800, High: "30°", Low: "18°"},
		Paints:  paints,
		Width:   320,
		Height:  320,
		Layout:  Layout{YOffset: 100, DateMargin: 10, LineWidth: 60},
		Measure: monoMeasure{},
		Icons:   SquareIcons{Size: 40},
	}
}

func TestDeriveTime(t *testing.T) {
	p := Derive(input(t))
	if p.Hour.Text != "07" || p.Minute.Text != ":05" {
		t.Fatalf("time = %q %q", p.Hour.Text, p.Minute.Text)
	}
	// "07:05" is 5 runes at 20px, 100px wide, centred on 160.
	if p.Hour.X != 110 || p.Minute.X != 150 {
		t.Fatalf("time x = %v, %v; want 110, 150", p.Hour.X, p.Minute.X)
	}
	if p.Hour.Y != 100 || p.Minute.Y != 100 {
		t.Fatalf("time y = %v, %v", p.Hour.Y, p.Minute.Y)
	}
}

func TestDeriveDateAndDivider(t *testing.T) {
	p := Derive(input(t))
	if p.Date.Text != "Thu, Oct 15 2026" {
		t.Fatalf("date = %q", p.Date.Text)
	}
	// 16 runes at 10px.
	if p.Date.X != 80 || p.Date.Y != 140 {
		t.Fatalf("date at (%v,%v), want (80,140)", p.Date.X, p.Date.Y)
	}
	d := p.Divider
	if d.X0 != 130 || d.X1 != 190 || d.Y0 != 170 || d.Y1 != 170 {
		t.Fatalf("divider = %+v", d)
	}
}

func TestDeriveWeatherGroup(t *testing.T) {
	p := Derive(input(t))
	// icon 40 + margin 10 + "30°" 30 + "18°" 30 = 110, left = 105.
	if p.Icon.Name != IconClear || p.Icon.X != 105 || p.Icon.Y != 180 {
		t.Fatalf("icon = %+v", p.Icon)
	}
	if p.High.X != 155 || p.High.Y != 200 {
		t.Fatalf("high at (%v,%v), want (155,200)", p.High.X, p.High.Y)
	}
	if p.Low.X != 185 || p.Low.Y != 200 {
		t.Fatalf("low at (%v,%v), want (185,200)", p.Low.X, p.Low.Y)
	}
}

func TestDeriveNeverShowsSeconds(t *testing.T) {
	in := input(t)
	a := Derive(in)
	in.Clock.Second = 1
	b := Derive(in)
	if a != b {
		t.Fatal("plan depends on seconds")
	}
}

func TestDeriveFollowsSnapshots(t *testing.T) {
	in := input(t)
	a := Derive(in)
	in.Weather = snapshot.DefaultWeather()
	in.Clock.Minute = 6
	b := Derive(in)
	if b.Minute.Text != ":06" || b.High.Text != "--°" || b.Icon.Name != IconRain {
		t.Fatalf("plan not rederived: %+v", b)
	}
	if a.Minute.Text == b.Minute.Text {
		t.Fatal("first plan changed")
	}
}

func TestIconFor(t *testing.T) {
	cases := map[int]string{
		200: IconStorm,
		301: IconLightRain,
		501: IconRain,
		511: IconSnow,
		601: IconSnow,
		741: IconFog,
		761: IconStorm,
		781: IconStorm,
		800: IconClear,
		801: IconLightClouds,
		804: IconClouds,
		900: IconUnknown,
	}
	for id, want := range cases {
		if got := IconFor(id); got != want {
			t.Errorf("IconFor(%d) = %q, want %q", id, got, want)
		}
	}
}
