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
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/radio"
)

func main() {
	opts := config.DefaultBaseOptions()
	cmd := &cobra.Command{
		Use:          "base-service",
		Short:        "Send handlebar switch positions to the helmet over the radio mesh",
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

func run(cmd *cobra.Command, opts *config.BaseOptions) error {
	if err := config.LoadConfig(opts, cmd); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	l := logger.NewStdLogger(opts.LogLevel())
	l.Infof("Starting base service...")

	self, helmet, err := opts.Addresses()
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
		go logFrames(ctx, far, l.WithTag("helmet"))
	}

	var io core.SwitchIO
	if opts.Simulate {
		sim := hardware.NewSimSwitches(l)
		l.Infof("Type \"<switch> on|off\" to drive %s, %s, %s or %s",
			hardware.InputBlinkerLeft, hardware.InputBlinkerRight, hardware.InputBrake, hardware.InputHazard)
		go sim.RunConsole(os.Stdin)
		io = sim
	} else {
		io = hardware.NewSwitchInputs(opts.SwitchConfig(), l)
	}

	var redis core.MessagingClient
	if opts.RedisAddr != "" {
		redis = messaging.NewRedisClient(opts.RedisAddr, messaging.HashBase, l, messaging.Callbacks{})
	}

	system := core.NewBaseSystem(core.BaseConfig{
		Node:              self,
		Helmet:            helmet,
		HeartbeatInterval: opts.HeartbeatInterval,
		BlinkInterval:     opts.AnimationBlinkInterval,
	}, io, link, redis, l)
	if err := system.Start(); err != nil {
		l.Fatalf("Failed to start system: %v", err)
	}
	l.Infof("System started successfully")

	if opts.HttpListen != "" {
		srv := preview.NewServer(opts.HttpListen, nil, l)
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

	system.Run(ctx)
	l.Infof("Received signal, shutting down...")
	system.Shutdown()
	l.Infof("Shutdown complete")
	return nil
}

// logFrames stands in for the helmet on a simulated link.
func logFrames(ctx context.Context, link radio.Link, l *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-link.Frames():
			switch f.Header.Type {
			case protocol.TypeSignal:
				sig, err := protocol.DecodeSignal(f)
				if err != nil {
					l.Warnf("Bad signal frame: %v", err)
					continue
				}
				l.Infof("Signal %s (id %d)", sig, f.Header.ID)
			default:
				l.Debugf("Frame %s", f.Header)
			}
		}
	}
}
