// Package console runs the interactive command loop on top of the shared
// broker connection. The RPC client and the event logger multiplex the same
// connection; inbound traffic keeps flowing while a command is suspended
// awaiting its response.
package console

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/chzyer/readline"
	"golang.org/x/sync/errgroup"

	"github.com/fleetlink-io/fleetlink/internal/console/events"
	"github.com/fleetlink-io/fleetlink/internal/console/interp"
	"github.com/fleetlink-io/fleetlink/internal/console/rpc"
	"github.com/fleetlink-io/fleetlink/internal/pkg/timeout"
	"github.com/fleetlink-io/fleetlink/pkg/log"
	"github.com/fleetlink-io/fleetlink/pkg/mqtt"
)

const prompt = "fleet> "

// Console owns the session lifecycle: connect, subscribe, loop, disconnect.
type Console struct {
	mc        mqtt.Client
	rpc       *rpc.Client
	events    *events.Logger
	vehicleID string
	limit     time.Duration
}

// Run connects to the broker, establishes the response and event
// subscriptions, and drives the REPL until quit, end of input or a fatal
// error. Startup failures (connect, subscribe) are fatal.
func (c *Console) Run(ctx context.Context) error {
	if err := c.mc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.limit)
		defer cancel()
		c.mc.Disconnect(shutdownCtx)
	}()

	if err := timeout.Do(ctx, "connect", c.limit, c.mc.AwaitConnection); err != nil {
		return err
	}
	if err := timeout.Do(ctx, "subscribe responses", c.limit, c.rpc.Start); err != nil {
		return err
	}
	if err := timeout.Do(ctx, "subscribe events", c.limit, c.events.Start); err != nil {
		return err
	}
	defer c.events.Close()

	log.Info("Console ready", "vehicleID", c.vehicleID, "eventChannel", c.events.Channel())

	itp := interp.New(interp.Config{
		Executor:     c.rpc,
		Transport:    c.mc,
		Timeout:      c.limit,
		VehicleID:    c.vehicleID,
		EventChannel: c.events.Channel(),
		EventLogPath: c.events.Path(),
	})

	rl, err := readline.New(prompt)
	if err != nil {
		return err
	}
	defer rl.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Readline blocks without a context; close it when the session ends so
	// the loop below unblocks.
	g.Go(func() error {
		<-ctx.Done()
		rl.Close()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		for {
			line, err := rl.Readline()
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err != nil {
				// io.EOF or closed input; leave like "quit" does.
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					return err
				}
				return nil
			}

			quit, err := itp.HandleLine(ctx, line)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			if quit {
				return nil
			}
		}
	})

	return g.Wait()
}
