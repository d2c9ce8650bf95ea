package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sakaisatoru/go_sunshine_face/aqm1602y"
	"github.com/sakaisatoru/go_sunshine_face/config"
	"github.com/sakaisatoru/go_sunshine_face/displaymodel"
	"github.com/sakaisatoru/go_sunshine_face/engine"
	"github.com/sakaisatoru/go_sunshine_face/epaper"
	"github.com/sakaisatoru/go_sunshine_face/irremote"
	"github.com/sakaisatoru/go_sunshine_face/prefs"
	"github.com/sakaisatoru/go_sunshine_face/raster"
	"github.com/sakaisatoru/go_sunshine_face/snapshot"
	"github.com/sakaisatoru/go_sunshine_face/tzsignal"
	"github.com/sakaisatoru/go_sunshine_face/weatherdb"
	"github.com/sakaisatoru/go_sunshine_face/weatherfetch"
)

const VERSIONMESSAGE = "Sunshine Ver 1.0"

func main() {
	var (
		configPath = flag.String("config", "", "path to face.yaml (built-in defaults when empty)")
		socketPath = flag.String("socket", "", "control socket path (overrides config)")
		display    = flag.String("display", "", "lcd, epaper or log (overrides config)")
		noFetch    = flag.Bool("no-fetch", false, "do not download forecasts")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, config.WithDisplayKind(*display), config.WithSocket(*socketPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, !*noFetch, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, fetch bool, log *slog.Logger) error {
	store, err := weatherdb.Open(cfg.Weather.DB, weatherdb.WithMkdirAll(), weatherdb.WithLogger(log))
	if err != nil {
		return err
	}
	defer store.Close()
	if n, err := store.Prune(ctx, time.Now().AddDate(0, 0, -30)); err != nil {
		log.Warn("prune old forecasts", "error", err)
	} else if n > 0 {
		log.Info("pruned old forecasts", "days", n)
	}

	pref, err := prefs.New(ctx, store.DB())
	if err != nil {
		return err
	}
	location, err := pref.Seed(ctx, cfg.Weather.DefaultLocation)
	if err != nil {
		return err
	}

	fonts, err := raster.NewFonts()
	if err != nil {
		return err
	}
	renderer, closeDisplay, err := openDisplay(cfg, fonts, log)
	if err != nil {
		return err
	}
	defer closeDisplay()

	tz := tzsignal.New()
	e, err := engine.New(engine.Options{
		Width:           cfg.Display.Width,
		Height:          cfg.Display.Height,
		Layout:          cfg.Layout.Layout,
		Sizes:           cfg.Layout.Sizes,
		Measure:         fonts,
		Icons:           displaymodel.SquareIcons{Size: cfg.Layout.IconSize},
		Renderer:        renderer,
		Provider:        store,
		Preferences:     pref,
		DefaultLocation: cfg.Weather.DefaultLocation,
		Formatter:       snapshot.DegreeFormatter{Metric: cfg.Weather.Metric()},
		Fallback:        cfg.Weather.Fallback,
		ZoneSignal:      tz,
		LocalZone: func() string {
			if z := tz.Last(); z != "" {
				return z
			}
			return time.Local.String()
		},
		Logger: log,
	})
	if err != nil {
		return err
	}
	ctl := newFaceControl(e, tz, cfg.Display.AmbientAfter, log)
	defer ctl.stop()

	if fetch {
		f := weatherfetch.New(store, weatherfetch.Options{
			URL:    cfg.Weather.URL,
			APIKey: cfg.Weather.APIKey,
			Days:   cfg.Weather.Days,
			Logger: log,
		})
		go f.Run(ctx, cfg.Weather.Interval, func() string {
			if loc, err := pref.PreferredLocation(ctx); err == nil {
				return loc
			}
			return location
		})
	}

	// Control socket.
	requests := make(chan request)
	ln, err := listenControl(cfg.Control.Socket)
	if err != nil {
		log.Warn("control socket unavailable", "path", cfg.Control.Socket, "error", err)
	} else {
		defer os.Remove(cfg.Control.Socket)
		defer ln.Close()
		go server(ln, requests, log)
	}

	// Buttons.
	btncode := make(chan ButtonCode)
	if cfg.GPIO.Enabled {
		b, err := openButtons(cfg.GPIO.VisiblePin, cfg.GPIO.AmbientPin)
		if err != nil {
			log.Warn("buttons unavailable", "error", err)
		} else {
			defer b.close()
			go b.btninput(ctx, btncode)
		}
	}

	// IR remote.
	irch := make(chan int32)
	if cfg.IR.Enabled {
		r, err := irremote.Open(cfg.IR.Device)
		if err != nil {
			log.Warn("ir remote unavailable", "error", err)
		} else {
			defer r.Close()
			go func() {
				if err := r.Read(irch); err != nil && ctx.Err() == nil {
					log.Warn("ir remote stopped", "error", err)
				}
			}()
		}
	}

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	ctl.setRound(cfg.Display.Round)
	ctl.setLowBit(cfg.Display.LowBitAmbient)
	ctl.setVisible(true)
	ctl.touch()
	log.Info("face started", "version", VERSIONMESSAGE, "display", cfg.Display.Kind, "location", location)

	minute := time.NewTimer(untilNextMinute(time.Now()))
	defer minute.Stop()

	for {
		select {
		case err := <-done:
			return err

		case req := <-requests:
			reply, err := ctl.exec(req.line)
			if err != nil {
				reply = "error: " + err.Error()
			}
			req.reply <- reply

		case code := <-btncode:
			ctl.press(buttonfunc[code], code == btnAmbient)

		case code := <-irch:
			ctl.press(irfunc[code], code == irremote.KeyA)

		case now := <-minute.C:
			ctl.tick()
			minute.Reset(untilNextMinute(now))
		}
	}
}

func untilNextMinute(now time.Time) time.Duration {
	return now.Truncate(time.Minute).Add(time.Minute).Sub(now)
}

var _ engine.Blanker = (*aqm1602y.Face)(nil)

// openDisplay builds the renderer named by the config.
func openDisplay(cfg config.Config, fonts *raster.Fonts, log *slog.Logger) (engine.Renderer, func() error, error) {
	switch cfg.Display.Kind {
	case config.DisplayLCD:
		dev, closeBus, err := aqm1602y.Open(uint8(cfg.Display.I2CAddr), cfg.Display.I2CBus)
		if err != nil {
			return nil, nil, err
		}
		if err := dev.Configure(); err != nil {
			closeBus()
			return nil, nil, err
		}
		dev.PrintWithPos(0, 0, aqm1602y.Encode(VERSIONMESSAGE))
		f := aqm1602y.NewFace(dev, log)
		return f, func() error {
			dev.DisplayOff()
			return closeBus()
		}, nil
	case config.DisplayEPaper:
		painter := &raster.Painter{Fonts: fonts, Ink: 0x00, Paper: 0xff, Log: log}
		r, closeFn, err := epaper.Open(cfg.Display.SPIPort, painter, log)
		if err != nil {
			return nil, nil, err
		}
		return r, closeFn, nil
	default:
		return logRenderer{log: log}, func() error { return nil }, nil
	}
}

// logRenderer writes each frame's text to the log, for running off the Pi.
type logRenderer struct {
	log *slog.Logger
}

func (r logRenderer) Render(p displaymodel.Plan) error {
	r.log.Info("frame",
		"time", p.Hour.Text+p.Minute.Text,
		"date", p.Date.Text,
		"icon", p.Icon.Name,
		"high", p.High.Text,
		"low", p.Low.Text,
		"ambient", p.State.Ambient,
		"antialias", p.Hour.Paint.AntiAlias)
	return nil
}
