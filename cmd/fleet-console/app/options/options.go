package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/fleetlink-io/fleetlink/internal/console"
	"github.com/fleetlink-io/fleetlink/pkg/log"
	"github.com/fleetlink-io/fleetlink/pkg/options"
)

// ConsoleOptions holds every flag- and file-configurable knob of the console.
type ConsoleOptions struct {
	MqttOptions *options.MqttOptions `json:"mqtt" mapstructure:"mqtt"`
	Log         *log.Options         `json:"log" mapstructure:"log"`

	// Vehicle is the initially targeted vehicle identifier.
	Vehicle string `json:"vehicle" mapstructure:"vehicle"`

	// Timeout bounds each broker round trip.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// DataDir overrides where event logs are written.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`
}

func NewConsoleOptions() *ConsoleOptions {
	return &ConsoleOptions{
		MqttOptions: options.NewMqttOptions(),
		Log:         log.NewOptions(),
		Timeout:     5 * time.Second,
	}
}

// AddFlags adds the console's flags to the specified FlagSet.
func (o *ConsoleOptions) AddFlags(fs *pflag.FlagSet) {
	o.MqttOptions.AddFlags(fs)
	o.Log.AddFlags(fs)

	fs.StringVar(&o.Vehicle, "vehicle", o.Vehicle, "The vehicle identifier commands are sent to.")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Deadline for each broker round trip.")
	fs.StringVar(&o.DataDir, "data-dir", o.DataDir, "Directory for event log files (defaults to the per-user config dir).")
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *ConsoleOptions) Validate() []error {
	errs := []error{}
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)

	if o.Vehicle == "" {
		errs = append(errs, fmt.Errorf("--vehicle is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("--timeout must be positive, got %s", o.Timeout))
	}

	return errs
}

// Config builds the runnable console configuration from the options.
func (o *ConsoleOptions) Config() (*console.Config, error) {
	return &console.Config{
		MqttOptions: o.MqttOptions,
		VehicleID:   o.Vehicle,
		Timeout:     o.Timeout,
		DataDir:     o.DataDir,
	}, nil
}
