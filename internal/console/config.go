package console

import (
	"fmt"
	"os"
	"time"

	"github.com/fleetlink-io/fleetlink/internal/console/events"
	"github.com/fleetlink-io/fleetlink/internal/console/rpc"
	"github.com/fleetlink-io/fleetlink/pkg/mqtt"
	"github.com/fleetlink-io/fleetlink/pkg/options"
)

// Config carries everything needed to assemble a Console. All values are
// fixed for the session once the process starts.
type Config struct {
	MqttOptions *options.MqttOptions

	// VehicleID is the initially selected vehicle.
	VehicleID string

	// Timeout bounds every blocking broker operation.
	Timeout time.Duration

	// DataDir overrides the event log directory; empty means the per-user
	// default.
	DataDir string
}

// NewConsole wires the transport, RPC client and event logger into a Console.
func (cfg *Config) NewConsole() (*Console, error) {
	mqttCfg := cfg.MqttOptions.ToClientConfig()
	if mqttCfg.ClientID == "" {
		mqttCfg.ClientID = fmt.Sprintf("fleet-console-%d", os.Getpid())
	}

	mc, err := mqtt.NewClient(mqttCfg)
	if err != nil {
		return nil, fmt.Errorf("init mqtt client: %w", err)
	}

	dir := cfg.DataDir
	if dir == "" {
		if dir, err = events.DefaultDir(); err != nil {
			return nil, err
		}
	}
	logger, err := events.NewLogger(mc, dir)
	if err != nil {
		return nil, fmt.Errorf("init event logger: %w", err)
	}

	return &Console{
		mc:        mc,
		rpc:       rpc.NewClient(mc),
		events:    logger,
		vehicleID: cfg.VehicleID,
		limit:     cfg.Timeout,
	}, nil
}
