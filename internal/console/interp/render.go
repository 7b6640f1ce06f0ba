package interp

import (
	"fmt"

	"github.com/gosuri/uitable"

	"github.com/fleetlink-io/fleetlink/pkg/mqtt/topic"
	"github.com/fleetlink-io/fleetlink/pkg/protocol"
)

var commands = []struct {
	syntax string
	desc   string
}{
	{"ping", "Check broker connectivity."},
	{"get vin", "Show the selected vehicle id."},
	{"set vin <vin>", "Select the vehicle subsequent commands target."},
	{"show topics", "Show the selected vehicle's request/response topics."},
	{"inspect <namespace> <query>", "List namespace members matching a query."},
	{"read <namespace> <key>", "Read one value."},
	{"write <namespace> <key> <value>", "Write one value."},
	{"invoke <namespace> <command> [<arg>...]", "Invoke a command with arguments."},
	{"subscribe <namespace> <source>...", "Route events from sources to this console."},
	{"help", "Show this help."},
	{"quit | exit", "Leave the console."},
}

func (i *Interpreter) printHelp() {
	table := uitable.New()
	table.MaxColWidth = 80
	for _, c := range commands {
		table.AddRow(c.syntax, c.desc)
	}
	fmt.Fprintln(i.out, table)
}

func (i *Interpreter) printTopics(pair topic.Pair) {
	table := uitable.New()
	table.AddRow("DIRECTION", "TOPIC")
	table.AddRow("request", pair.Request)
	table.AddRow("response", pair.Response)
	fmt.Fprintln(i.out, table)
}

// render prints one fulfillment to the console.
func (i *Interpreter) render(f *protocol.Fulfillment) {
	if f.Error != "" {
		fmt.Fprintf(i.out, "error: %s\n", f.Error)
		return
	}

	switch f.Kind {
	case protocol.IntentInspect:
		if f.Inspect == nil || len(f.Inspect.Entries) == 0 {
			fmt.Fprintln(i.out, "no matches")
			return
		}
		table := uitable.New()
		table.AddRow("PATH", "TYPE")
		for _, entry := range f.Inspect.Entries {
			table.AddRow(entry.Path, entry.Type)
		}
		fmt.Fprintln(i.out, table)

	case protocol.IntentRead:
		if f.Read == nil {
			fmt.Fprintln(i.out, "empty read fulfillment")
			return
		}
		fmt.Fprintln(i.out, f.Read.Value.String())

	case protocol.IntentWrite:
		fmt.Fprintln(i.out, "ok")

	case protocol.IntentInvoke:
		if f.Invoke == nil {
			fmt.Fprintln(i.out, "empty invoke fulfillment")
			return
		}
		fmt.Fprintln(i.out, f.Invoke.Return.String())

	case protocol.IntentSubscribe:
		fmt.Fprintln(i.out, "subscribed")

	default:
		fmt.Fprintf(i.out, "unrecognized fulfillment %q\n", f.Kind)
	}
}
