package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"helmet-signal/internal/config"
	"helmet-signal/internal/core"
	"helmet-signal/internal/hardware"
	"helmet-signal/internal/logger"
	"helmet-signal/internal/messaging"
	"helmet-signal/internal/preview"
	"helmet-signal/internal/radio"
)

const (
	demoStep       = 1500 * time.Millisecond
	reloadDebounce = 500 * time.Millisecond
)

func main() {
	opts := config.DefaultHelmetOptions()
	cmd := &cobra.Command{
		Use:          "helmet-service",
		Short:        "Render turn and brake signals from the base unit on the helmet LED strip",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &opts)
		},
	}
	config.BindFlags(cmd.Flags(), &opts)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, opts *config.HelmetOptions) error {
	// defaults plus command line, the starting point for every reload
	flagged := *opts
	if err := config.LoadConfig(opts, cmd); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	l := logger.NewStdLogger(opts.LogLevel())
	l.Infof("Starting helmet service...")

	cfg, err := helmetConfig(*opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	linkCfg, err := opts.LinkConfig()
	if err != nil {
		return err
	}
	if opts.Simulate {
		linkCfg.Kind = radio.KindSim
	}
	link, far, err := radio.Open(linkCfg, l)
	if err != nil {
		return fmt.Errorf("failed to open %s link: %w", linkCfg.Kind, err)
	}
	if far != nil {
		go radio.RunDemo(ctx, far, cfg.Base, cfg.Node, demoStep, l)
	}

	var strip core.Strip
	if opts.Simulate || opts.StripDevice == config.SimDevice {
		strip = hardware.NewMemoryStrip()
	} else {
		spi, err := hardware.OpenSPIStrip(opts.StripDevice, l)
		if err != nil {
			link.Close()
			return err
		}
		strip = spi
	}

	var sensor core.AmbientSensor
	if !opts.Simulate && opts.BrightnessAdcDevice != "" {
		sensor = hardware.NewAmbientSensor(opts.BrightnessAdcDevice, opts.BrightnessAdcChannel)
	}

	var redis core.MessagingClient
	if opts.RedisAddr != "" {
		redis = messaging.NewRedisClient(opts.RedisAddr, messaging.HashHelmet, l, messaging.Callbacks{})
	}

	system, err := core.NewHelmetSystem(cfg, link, strip, sensor, redis, l)
	if err != nil {
		return err
	}
	if err := system.Start(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}
	l.Infof("System started successfully")

	if opts.HttpListen != "" {
		srv := preview.NewServer(opts.HttpListen, system, l)
		if err := srv.Start(); err != nil {
			l.Warnf("HTTP server disabled: %v", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}
	}

	if opts.Config != "" {
		w := config.NewWatcher(opts.Config, func(path string) (config.HelmetOptions, error) {
			o := flagged
			o.Config = path
			if err := config.LoadConfig(&o, cmd); err != nil {
				return o, err
			}
			return o, o.Validate()
		}, reloadDebounce, l)
		w.OnReload(func(o config.HelmetOptions) {
			next, err := helmetConfig(o)
			if err != nil {
				l.Warnf("Ignoring reloaded config: %v", err)
				return
			}
			if next.Node != cfg.Node || next.StripCount != cfg.StripCount {
				l.Warnf("Node address and strip length changes need a restart")
			}
			if err := system.ApplyConfig(next.Settings, next.Brightness); err != nil {
				l.Warnf("Failed to apply reloaded config: %v", err)
			}
		})
		if err := w.Start(); err != nil {
			l.Warnf("Config reload disabled: %v", err)
		} else {
			defer w.Stop()
		}
	}

	system.Run(ctx)
	l.Infof("Received signal, shutting down...")
	system.Shutdown()
	l.Infof("Shutdown complete")
	return nil
}

func helmetConfig(o config.HelmetOptions) (core.HelmetConfig, error) {
	self, base, err := o.Addresses()
	if err != nil {
		return core.HelmetConfig{}, err
	}
	settings, err := o.AnimationSettings()
	if err != nil {
		return core.HelmetConfig{}, err
	}
	return core.HelmetConfig{
		Node:       self,
		Base:       base,
		StripCount: o.StripCount,
		Settings:   settings,
		Brightness: core.BrightnessRange{
			AdcMin: o.BrightnessAdcMin,
			AdcMax: o.BrightnessAdcMax,
			Min:    uint8(o.BrightnessMin),
			Max:    uint8(o.BrightnessMax),
		},
		FrameInterval:      o.AnimationFrameInterval,
		BrightnessInterval: o.BrightnessInterval,
		LinkTimeout:        o.LinkTimeout,
	}, nil
}
