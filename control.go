package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// face is the part of the engine the host drives.
type face interface {
	VisibilityChanged(visible bool)
	AmbientModeChanged(ambient bool)
	PropertiesChanged(lowBitAmbient bool)
	ApplyInsets(round bool)
	TimeTick()
}

type zonePublisher interface {
	Publish(zone string)
}

// faceControl keeps the mode the host last asked for, so buttons and the
// remote can toggle it, and forwards every change to the face.
type faceControl struct {
	mu   sync.Mutex
	face face
	tz   zonePublisher
	log  *slog.Logger

	ambientAfter time.Duration
	idle         *time.Timer

	visible bool
	ambient bool
	lowBit  bool
	round   bool
}

func newFaceControl(f face, tz zonePublisher, ambientAfter time.Duration, logger *slog.Logger) *faceControl {
	return &faceControl{face: f, tz: tz, ambientAfter: ambientAfter, log: logger}
}

func (c *faceControl) setVisible(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visibleLocked(on)
}

func (c *faceControl) visibleLocked(on bool) {
	c.visible = on
	c.face.VisibilityChanged(on)
}

func (c *faceControl) setAmbient(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ambient = on
	c.face.AmbientModeChanged(on)
}

func (c *faceControl) setLowBit(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lowBit = on
	c.face.PropertiesChanged(on)
}

func (c *faceControl) setRound(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.round = on
	c.face.ApplyInsets(on)
}

func (c *faceControl) toggleVisible() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visibleLocked(!c.visible)
}

func (c *faceControl) toggleAmbient() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ambient = !c.ambient
	c.face.AmbientModeChanged(c.ambient)
}

func (c *faceControl) toggleLowBit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lowBit = !c.lowBit
	c.face.PropertiesChanged(c.lowBit)
}

func (c *faceControl) toggleRound() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.round = !c.round
	c.face.ApplyInsets(c.round)
}

func (c *faceControl) tick() { c.face.TimeTick() }

// touch records user input: it leaves ambient mode and restarts the idle
// countdown back into it. It reports whether ambient mode was left.
func (c *faceControl) touch() (woke bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ambient {
		c.ambient = false
		c.face.AmbientModeChanged(false)
		woke = true
	}
	if c.ambientAfter <= 0 {
		return woke
	}
	if c.idle == nil {
		c.idle = time.AfterFunc(c.ambientAfter, func() { c.setAmbient(true) })
		return woke
	}
	c.idle.Reset(c.ambientAfter)
	return woke
}

// press handles one button or remote key. The key counts as input first;
// an ambient toggle that woke the face has already done its job.
func (c *faceControl) press(fn func(*faceControl), togglesAmbient bool) {
	if c.touch() && togglesAmbient {
		return
	}
	if fn != nil {
		fn(c)
	}
}

func (c *faceControl) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idle != nil {
		c.idle.Stop()
	}
}

func (c *faceControl) status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("visible=%s ambient=%s lowbit=%s round=%s",
		onOff(c.visible), onOff(c.ambient), onOff(c.lowBit), onOff(c.round))
}

// exec runs one control socket command and returns the reply line.
func (c *faceControl) exec(line string) (string, error) {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch verb {
	case "visible", "ambient", "lowbit", "round":
		on, err := parseOnOff(arg)
		if err != nil {
			return "", fmt.Errorf("%s: %w", verb, err)
		}
		switch verb {
		case "visible":
			c.setVisible(on)
		case "ambient":
			c.setAmbient(on)
		case "lowbit":
			c.setLowBit(on)
		case "round":
			c.setRound(on)
		}
	case "timezone":
		if arg == "" {
			return "", fmt.Errorf("timezone: missing zone id")
		}
		if _, err := time.LoadLocation(arg); err != nil {
			return "", fmt.Errorf("timezone: %w", err)
		}
		c.tz.Publish(arg)
	case "tick":
		c.tick()
	case "status":
		return c.status(), nil
	case "":
		return "", fmt.Errorf("empty command")
	default:
		return "", fmt.Errorf("unknown command %q", verb)
	}
	c.log.Debug("control command", "verb", verb, "arg", arg)
	return "ok", nil
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", s)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
