package main

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sakaisatoru/go_sunshine_face/irremote"
)

type faceCalls struct {
	calls []string
}

func (f *faceCalls) VisibilityChanged(v bool)  { f.calls = append(f.calls, "visible "+onOff(v)) }
func (f *faceCalls) AmbientModeChanged(a bool) { f.calls = append(f.calls, "ambient "+onOff(a)) }
func (f *faceCalls) PropertiesChanged(l bool)  { f.calls = append(f.calls, "lowbit "+onOff(l)) }
func (f *faceCalls) ApplyInsets(r bool)        { f.calls = append(f.calls, "round "+onOff(r)) }
func (f *faceCalls) TimeTick()                 { f.calls = append(f.calls, "tick") }

type zones struct{ got []string }

func (z *zones) Publish(zone string) { z.got = append(z.got, zone) }

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestExecCommands(t *testing.T) {
	f, z := &faceCalls{}, &zones{}
	c := newFaceControl(f, z, 0, quiet)

	for _, line := range []string{"visible on", "ambient on", " lowbit off ", "round on", "tick", "timezone Asia/Tokyo"} {
		if reply, err := c.exec(line); err != nil || reply != "ok" {
			t.Fatalf("exec(%q) = %q, %v", line, reply, err)
		}
	}
	want := []string{"visible on", "ambient on", "lowbit off", "round on", "tick"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", f.calls)
	}
	if len(z.got) != 1 || z.got[0] != "Asia/Tokyo" {
		t.Fatalf("zones = %v", z.got)
	}
	if got, _ := c.exec("status"); got != "visible=on ambient=on lowbit=off round=on" {
		t.Fatalf("status = %q", got)
	}
}

func TestExecRejects(t *testing.T) {
	c := newFaceControl(&faceCalls{}, &zones{}, 0, quiet)
	for _, line := range []string{"", "visible", "ambient maybe", "timezone", "timezone Mars/Olympus", "reboot"} {
		if _, err := c.exec(line); err == nil {
			t.Errorf("exec(%q) succeeded", line)
		}
	}
}

func TestToggles(t *testing.T) {
	f := &faceCalls{}
	c := newFaceControl(f, &zones{}, 0, quiet)

	c.toggleVisible()
	c.toggleVisible()
	c.setVisible(false)
	c.toggleAmbient()
	if !c.touch() {
		t.Fatal("touch did not report leaving ambient")
	}
	if c.touch() {
		t.Fatal("second touch reported leaving ambient")
	}
	want := []string{"visible on", "visible off", "visible off", "ambient on", "ambient off"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", f.calls)
	}
}

func TestAmbientKeyWhileAmbientWakes(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*faceControl)
	}{
		{"button", buttonfunc[btnAmbient]},
		{"remote", irfunc[irremote.KeyA]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &faceCalls{}
			c := newFaceControl(f, &zones{}, 0, quiet)
			c.setAmbient(true)

			c.press(tt.fn, true)
			if got := c.status(); got != "visible=off ambient=off lowbit=off round=off" {
				t.Fatalf("status = %q", got)
			}
			if want := "ambient on,ambient off"; strings.Join(f.calls, ",") != want {
				t.Fatalf("calls = %v", f.calls)
			}

			// Pressed again while interactive, it toggles.
			c.press(tt.fn, true)
			if got := c.status(); got != "visible=off ambient=on lowbit=off round=off" {
				t.Fatalf("status = %q", got)
			}
		})
	}
}

func TestOtherKeysStillActWhenWaking(t *testing.T) {
	f := &faceCalls{}
	c := newFaceControl(f, &zones{}, 0, quiet)
	c.setAmbient(true)

	c.press(buttonfunc[btnVisible], false)
	if got := c.status(); got != "visible=on ambient=off lowbit=off round=off" {
		t.Fatalf("status = %q", got)
	}

	// Unmapped codes only count as input.
	c.press(irfunc[0], false)
}

func TestIdleEntersAmbient(t *testing.T) {
	f := &faceCalls{}
	c := newFaceControl(f, &zones{}, 10*time.Millisecond, quiet)
	defer c.stop()
	c.touch()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.status() == "visible=off ambient=on lowbit=off round=off" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("idle timer did not enter ambient mode")
}

func TestServeConnRepliesPerLine(t *testing.T) {
	client, srv := net.Pipe()
	ch := make(chan request)
	go serveConn(srv, ch, quiet)
	go func() {
		for req := range ch {
			req.reply <- "got " + req.line
		}
	}()
	defer close(ch)

	rd := bufio.NewReader(client)
	for _, cmd := range []string{"tick", "status"} {
		if _, err := client.Write([]byte(cmd + "\n")); err != nil {
			t.Fatal(err)
		}
		line, err := rd.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		if line != "got "+cmd+"\n" {
			t.Fatalf("reply = %q", line)
		}
	}
	client.Close()
}

func TestUntilNextMinute(t *testing.T) {
	now := time.Date(2026, 10, 15, 7, 5, 42, 0, time.UTC)
	if d := untilNextMinute(now); d != 18*time.Second {
		t.Fatalf("untilNextMinute = %s", d)
	}
}
