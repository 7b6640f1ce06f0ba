package app

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetlink-io/fleetlink/cmd/fleet-console/app/options"
	"github.com/fleetlink-io/fleetlink/pkg/log"
)

const (
	commandName = "fleet-console"
	commandDesc = `The FleetLink console is an interactive client for the vehicle
command-to-device channel. It issues inspect, read, write, invoke and
subscribe commands to a vehicle over the broker and records the events the
vehicle publishes back.`

	envPrefix = "FLEET"
)

var cfgFile string

// NewConsoleCommand builds the root cobra command.
func NewConsoleCommand() *cobra.Command {
	opts := options.NewConsoleOptions()

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Launch the interactive FleetLink vehicle console",
		Long:         commandDesc,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, opts); err != nil {
				return err
			}

			log.Init(opts.Log)

			if errs := opts.Validate(); len(errs) > 0 {
				return fmt.Errorf("invalid options: %v", errs)
			}

			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Path to the configuration file.")
	opts.AddFlags(cmd.Flags())

	return cmd
}

// loadConfig merges, in increasing precedence: config file, environment
// variables (FLEET_MQTT_BROKER and friends), then explicit flags.
func loadConfig(cmd *cobra.Command, opts *options.ConsoleOptions) error {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	return v.Unmarshal(opts)
}

func run(cmd *cobra.Command, opts *options.ConsoleOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	c, err := cfg.NewConsole()
	if err != nil {
		return fmt.Errorf("failed to create console: %w", err)
	}

	return c.Run(ctx)
}
