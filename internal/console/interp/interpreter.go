// Package interp parses interactive input lines, dispatches them as fulfill
// calls or session mutations, and renders the results.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fleetlink-io/fleetlink/internal/pkg/timeout"
	"github.com/fleetlink-io/fleetlink/pkg/mqtt/topic"
	"github.com/fleetlink-io/fleetlink/pkg/protocol"
)

// Executor issues one fulfill call to the selected vehicle.
type Executor interface {
	Execute(ctx context.Context, vehicleID string, req *protocol.FulfillRequest) (*protocol.FulfillResponse, error)
	Topics(vehicleID string) topic.Pair
}

// Transport exposes the broker liveness primitive used by "ping".
type Transport interface {
	AwaitConnection(ctx context.Context) error
}

// Config wires an Interpreter.
type Config struct {
	Executor  Executor
	Transport Transport

	// Timeout bounds every blocking broker operation a command performs.
	Timeout time.Duration

	// VehicleID is the initially selected vehicle.
	VehicleID string

	// EventChannel and EventLogPath identify where subscribed events end up;
	// they are announced once after the first successful subscribe.
	EventChannel string
	EventLogPath string

	// Out receives command results. Defaults to os.Stdout.
	Out io.Writer
}

// Interpreter executes one command per input line. Timeouts and usage errors
// are recoverable; only transport and internal failures end the session.
type Interpreter struct {
	exec      Executor
	transport Transport
	limit     time.Duration

	eventChannel string
	eventLogPath string
	announced    bool

	session Session
	out     io.Writer
}

// New creates an Interpreter with a fresh session.
func New(cfg Config) *Interpreter {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &Interpreter{
		exec:         cfg.Executor,
		transport:    cfg.Transport,
		limit:        cfg.Timeout,
		eventChannel: cfg.EventChannel,
		eventLogPath: cfg.EventLogPath,
		session:      Session{VehicleID: cfg.VehicleID},
		out:          out,
	}
}

// HandleLine interprets one input line. It returns quit=true when the user
// asked to leave. A returned error is fatal to the session; recoverable
// conditions (deadline expiry, bad input, server-reported errors) are printed
// and the loop continues.
func (i *Interpreter) HandleLine(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil

	case "help":
		i.printHelp()

	case "ping":
		if err := timeout.Do(ctx, "ping", i.limit, i.transport.AwaitConnection); err != nil {
			return false, i.report(err)
		}
		fmt.Fprintln(i.out, "pong")

	case "get":
		if len(fields) != 2 || fields[1] != "vin" {
			i.usage("get vin")
			break
		}
		fmt.Fprintln(i.out, i.session.VehicleID)

	case "set":
		if len(fields) != 3 || fields[1] != "vin" {
			i.usage("set vin <vin>")
			break
		}
		i.session.VehicleID = fields[2]

	case "show":
		if len(fields) != 2 || fields[1] != "topics" {
			i.usage("show topics")
			break
		}
		i.printTopics(i.exec.Topics(i.session.VehicleID))

	case "inspect":
		if len(fields) != 3 {
			i.usage("inspect <namespace> <query>")
			break
		}
		return false, i.dispatch(ctx, protocol.NewInspectRequest(fields[1], fields[2]))

	case "read":
		if len(fields) != 3 {
			i.usage("read <namespace> <key>")
			break
		}
		return false, i.dispatch(ctx, protocol.NewReadRequest(fields[1], fields[2]))

	case "write":
		if len(fields) < 4 {
			i.usage("write <namespace> <key> <value>")
			break
		}
		value := protocol.ParseValue(strings.Join(fields[3:], " "))
		return false, i.dispatch(ctx, protocol.NewWriteRequest(fields[1], fields[2], value))

	case "invoke":
		if len(fields) < 3 {
			i.usage("invoke <namespace> <command> [<arg>...]")
			break
		}
		args := make([]protocol.Value, 0, len(fields)-3)
		for _, arg := range fields[3:] {
			args = append(args, protocol.ParseValue(arg))
		}
		return false, i.dispatch(ctx, protocol.NewInvokeRequest(fields[1], fields[2], args))

	case "subscribe":
		if len(fields) < 3 {
			i.usage("subscribe <namespace> <source>...")
			break
		}
		return false, i.dispatch(ctx, protocol.NewSubscribeRequest(fields[1], i.eventChannel, fields[2:]))

	default:
		fmt.Fprintf(i.out, "unknown command %q, try \"help\"\n", fields[0])
	}

	return false, nil
}

// dispatch runs one fulfill call under the operation deadline and renders the
// outcome.
func (i *Interpreter) dispatch(ctx context.Context, req *protocol.FulfillRequest) error {
	op := fmt.Sprintf("%s %s", req.Intent.Kind, req.Namespace)
	resp, err := timeout.Run(ctx, op, i.limit, func(ctx context.Context) (*protocol.FulfillResponse, error) {
		return i.exec.Execute(ctx, i.session.VehicleID, req)
	})
	if err != nil {
		return i.report(err)
	}

	i.render(&resp.Fulfillment)

	if req.Intent.Kind == protocol.IntentSubscribe && resp.Fulfillment.Error == "" && !i.announced {
		fmt.Fprintf(i.out, "events for channel %s are logged to %s\n", i.eventChannel, i.eventLogPath)
		i.announced = true
	}
	return nil
}

// report prints a deadline expiry and swallows it so the loop continues.
// Anything else is fatal and handed back to the caller.
func (i *Interpreter) report(err error) error {
	var te *timeout.Error
	if errors.As(err, &te) {
		fmt.Fprintln(i.out, te.Error())
		return nil
	}
	return err
}

func (i *Interpreter) usage(syntax string) {
	fmt.Fprintf(i.out, "usage: %s\n", syntax)
}
