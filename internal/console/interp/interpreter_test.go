package interp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fleetlink-io/fleetlink/pkg/mqtt/topic"
	"github.com/fleetlink-io/fleetlink/pkg/protocol"
)

type fakeExecutor struct {
	lastVIN string
	lastReq *protocol.FulfillRequest
	resp    *protocol.FulfillResponse
	err     error
	block   bool
}

func (f *fakeExecutor) Execute(ctx context.Context, vehicleID string, req *protocol.FulfillRequest) (*protocol.FulfillResponse, error) {
	f.lastVIN = vehicleID
	f.lastReq = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func (f *fakeExecutor) Topics(vehicleID string) topic.Pair {
	return topic.PairFor(vehicleID)
}

type fakeTransport struct {
	err error
}

func (f *fakeTransport) AwaitConnection(ctx context.Context) error { return f.err }

func newTestInterpreter(exec *fakeExecutor) (*Interpreter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	i := New(Config{
		Executor:     exec,
		Transport:    &fakeTransport{},
		Timeout:      50 * time.Millisecond,
		VehicleID:    "VIN0",
		EventChannel: "host/prog/1/events",
		EventLogPath: "/tmp/host=prog=1=events",
		Out:          out,
	})
	return i, out
}

func handle(t *testing.T, i *Interpreter, line string) bool {
	t.Helper()
	quit, err := i.HandleLine(context.Background(), line)
	if err != nil {
		t.Fatalf("HandleLine(%q): %v", line, err)
	}
	return quit
}

func TestSetAndGetVin(t *testing.T) {
	i, out := newTestInterpreter(&fakeExecutor{})

	handle(t, i, "set vin ABC123")
	handle(t, i, "get vin")

	if got := strings.TrimSpace(out.String()); got != "ABC123" {
		t.Errorf("get vin printed %q, want %q", got, "ABC123")
	}
}

func TestShowTopicsReflectsUpdatedVin(t *testing.T) {
	i, out := newTestInterpreter(&fakeExecutor{})

	handle(t, i, "set vin ABC123")
	handle(t, i, "show topics")

	for _, want := range []string{"c2d/ABC123", "c2d/ABC123/rsvp"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("show topics output missing %q:\n%s", want, out.String())
		}
	}
}

func TestQuitAndExit(t *testing.T) {
	i, _ := newTestInterpreter(&fakeExecutor{})

	for _, line := range []string{"quit", "exit"} {
		if !handle(t, i, line) {
			t.Errorf("%q did not quit", line)
		}
	}
}

func TestUnknownCommandPrintsHint(t *testing.T) {
	i, out := newTestInterpreter(&fakeExecutor{})

	if handle(t, i, "frobnicate") {
		t.Error("unknown command terminated the session")
	}
	if !strings.Contains(out.String(), "help") {
		t.Errorf("no usage hint printed: %q", out.String())
	}
}

func TestMissingArgumentsPrintUsage(t *testing.T) {
	i, out := newTestInterpreter(&fakeExecutor{})

	for _, line := range []string{"read ns", "write ns key", "inspect ns", "invoke ns", "subscribe ns", "set vin", "get", "show"} {
		out.Reset()
		if handle(t, i, line) {
			t.Errorf("%q terminated the session", line)
		}
		if !strings.Contains(out.String(), "usage:") {
			t.Errorf("%q printed no usage hint: %q", line, out.String())
		}
	}
}

func TestTimeoutIsRecoverableAndLoopStaysUsable(t *testing.T) {
	exec := &fakeExecutor{block: true}
	i, out := newTestInterpreter(exec)

	start := time.Now()
	quit, err := i.HandleLine(context.Background(), "read ns key")
	if err != nil || quit {
		t.Fatalf("timed-out call: quit=%v err=%v", quit, err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("deadline not enforced, took %s", elapsed)
	}
	if !strings.Contains(out.String(), "timed out") {
		t.Errorf("no timeout message: %q", out.String())
	}

	out.Reset()
	handle(t, i, "ping")
	if !strings.Contains(out.String(), "pong") {
		t.Errorf("ping after timeout failed: %q", out.String())
	}
}

func TestReadRendersValue(t *testing.T) {
	exec := &fakeExecutor{resp: &protocol.FulfillResponse{
		Fulfillment: protocol.Fulfillment{
			Kind: protocol.IntentRead,
			Read: &protocol.ReadFulfillment{Value: protocol.Float64Value(3.5)},
		},
	}}
	i, out := newTestInterpreter(exec)

	handle(t, i, "read vehicle.cabin temperature")

	if exec.lastVIN != "VIN0" {
		t.Errorf("call targeted %q, want VIN0", exec.lastVIN)
	}
	if exec.lastReq.Intent.Read.Key != "temperature" {
		t.Errorf("read key = %q", exec.lastReq.Intent.Read.Key)
	}
	if got := strings.TrimSpace(out.String()); got != "3.5" {
		t.Errorf("rendered %q, want 3.5", got)
	}
}

func TestWriteJoinsValueRemainder(t *testing.T) {
	exec := &fakeExecutor{resp: &protocol.FulfillResponse{
		Fulfillment: protocol.Fulfillment{Kind: protocol.IntentWrite, Write: &protocol.WriteFulfillment{}},
	}}
	i, _ := newTestInterpreter(exec)

	handle(t, i, "write ns key hello world")

	value := exec.lastReq.Intent.Write.Value
	if value.Kind != protocol.KindString || value.Str != "hello world" {
		t.Errorf("write value = %+v, want string %q", value, "hello world")
	}
}

func TestInvokeParsesEachArgument(t *testing.T) {
	exec := &fakeExecutor{resp: &protocol.FulfillResponse{
		Fulfillment: protocol.Fulfillment{
			Kind:   protocol.IntentInvoke,
			Invoke: &protocol.InvokeFulfillment{Return: protocol.BoolValue(true)},
		},
	}}
	i, _ := newTestInterpreter(exec)

	handle(t, i, "invoke ns setTemp 42 3.5f on")

	args := exec.lastReq.Intent.Invoke.Args
	if len(args) != 3 {
		t.Fatalf("args = %d, want 3", len(args))
	}
	if args[0] != protocol.Int32Value(42) || args[1] != protocol.Float32Value(3.5) || args[2] != protocol.StringValue("on") {
		t.Errorf("parsed args = %+v", args)
	}
}

func TestSubscribeAnnouncesChannelOnce(t *testing.T) {
	exec := &fakeExecutor{resp: &protocol.FulfillResponse{
		Fulfillment: protocol.Fulfillment{Kind: protocol.IntentSubscribe, Subscribe: &protocol.SubscribeFulfillment{}},
	}}
	i, out := newTestInterpreter(exec)

	handle(t, i, "subscribe ns vehicle.speed")
	handle(t, i, "subscribe ns vehicle.rpm")

	if exec.lastReq.Intent.Subscribe.ChannelID != "host/prog/1/events" {
		t.Errorf("channel id = %q", exec.lastReq.Intent.Subscribe.ChannelID)
	}
	if got := strings.Count(out.String(), "host=prog=1=events"); got != 1 {
		t.Errorf("log path announced %d times, want 1:\n%s", got, out.String())
	}
}

func TestServerErrorIsRecoverable(t *testing.T) {
	exec := &fakeExecutor{resp: &protocol.FulfillResponse{
		Fulfillment: protocol.Fulfillment{Kind: protocol.IntentRead, Error: "unknown key"},
	}}
	i, out := newTestInterpreter(exec)

	handle(t, i, "read ns nope")

	if !strings.Contains(out.String(), "error: unknown key") {
		t.Errorf("server error not rendered: %q", out.String())
	}
}

func TestTransportFailureIsFatal(t *testing.T) {
	boom := errors.New("connection lost")
	exec := &fakeExecutor{err: boom}
	i, _ := newTestInterpreter(exec)

	_, err := i.HandleLine(context.Background(), "read ns key")
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
