package radio

import (
	"context"
	"time"

	"helmet-signal/internal/logger"
	"helmet-signal/internal/protocol"
	"helmet-signal/internal/types"
)

var demoSequence = []types.Signal{
	types.SignalLeft,
	types.SignalOff,
	types.SignalRight,
	types.SignalOff,
	types.SignalBrake,
	types.SignalHazard | types.SignalBrake,
	types.SignalOff,
}

// RunDemo plays the base unit's part on a simulated link: it cycles
// through every signal, holding each for step, until ctx is done.
func RunDemo(ctx context.Context, link Link, from, to uint16, step time.Duration, l *logger.Logger) {
	l = l.WithTag("demo")
	var seq protocol.Sequencer
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for i := 0; ; i++ {
		sig := demoSequence[i%len(demoSequence)]
		l.Infof("Sending %s", sig)
		if err := link.Send(ctx, protocol.NewSignalFrame(from, to, seq.Next(), sig)); err != nil {
			l.Warnf("Failed to send demo frame: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
