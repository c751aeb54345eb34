package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/recync/internal/cloudapi"
	"github.com/muurk/recync/internal/config"
	"github.com/muurk/recync/internal/coordinator"
	"github.com/muurk/recync/internal/eventbus"
	"github.com/muurk/recync/internal/logging"
	"github.com/muurk/recync/internal/protocol"
	"github.com/muurk/recync/internal/session"
)

// Command flags
var (
	outputFormat   string
	connectTimeout int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
}

// setup loads the configuration, initializes logging, and builds a
// coordinator bound to the configured account and relay endpoint.
func setup() (*config.Config, *coordinator.Coordinator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.LogLevel != "" {
		err = logging.Initialize(cfg.LogLevel)
	} else {
		err = logging.InitializeFromEnv()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logging: %w", err)
	}

	if cfg.Cloud.UserID == "" || cfg.Cloud.AccessToken == "" {
		return nil, nil, fmt.Errorf("cloud account not configured: set cloud.user_id and cloud.access_token in the config file")
	}
	loginCode, err := cfg.Cloud.LoginCodeBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("cloud account not configured: %w", err)
	}

	api := cloudapi.NewClient(cfg.Cloud.AccessToken)
	if cfg.Cloud.APIBase != "" {
		api.BaseURL = cfg.Cloud.APIBase
	}

	c := coordinator.New(api, cfg.Cloud.UserID, loginCode)
	c.SetDialer(session.DefaultDialer(cfg.Cloud.Host, cfg.Cloud.Port))
	c.SetDeviceFilter(cfg.Devices)

	return cfg, c, nil
}

// devicesCmd lists the account's mesh devices
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the account's mesh devices",
	Long: `List the mesh devices of the configured cloud account.

This enumerates the account's hub-class devices over the REST API and
prints every bulb and switch in their meshes, with the device ids used
by the 'on' and 'off' commands. The relay connection is not opened.`,
	Example: `  # List devices
  recync devices

  # JSON output for scripting
  recync devices --format json`,
	RunE: runDevices,
}

func runDevices(cmd *cobra.Command, args []string) error {
	_, c, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bulbs, err := c.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if outputFormat == "json" {
		data, err := json.MarshalIndent(bulbs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(bulbs) == 0 {
		fmt.Println("No mesh devices found on this account.")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(bulbs))
	for i, b := range bulbs {
		fmt.Printf("%d. %s\n", i+1, b.DisplayName)
		fmt.Printf("   ID:    %d\n", b.DeviceID)
		fmt.Printf("   Class: %s (type %d)\n", coordinator.HardwareClass(b.DeviceType), b.DeviceType)
		fmt.Println()
	}

	fmt.Println("Use 'recync on <id>' or 'recync off <id>' to control a device")
	fmt.Println("Use 'recync watch' to follow the live status stream")

	return nil
}

// watchCmd follows the live status stream
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the live status stream",
	Long: `Connect to the cloud relay and print status updates as they arrive.

The connection is kept open until interrupted; connection drops are
retried automatically and reported as events.`,
	Example: `  # Watch until Ctrl-C
  recync watch`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	_, c, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	defer c.Stop()

	unsubscribe := c.Session().Bus().Subscribe(printEvent, nil, nil)
	defer unsubscribe()

	fmt.Println("Watching status stream (Ctrl-C to stop)...")
	<-ctx.Done()
	fmt.Println("\nStopping.")

	return nil
}

// printEvent renders one bus event for the terminal.
func printEvent(e eventbus.Event) {
	ts := e.CreationTime.Format("15:04:05")
	switch e.Type {
	case eventbus.EventConnected, eventbus.EventReconnected, eventbus.EventDisconnected:
		fmt.Printf("[%s] %s\n", ts, e.Type)
	case eventbus.EventResourceUpdated:
		status, ok := e.Data.(*protocol.StatusUpdate)
		if !ok {
			return
		}
		state := "off"
		if status.IsOn {
			state = "on"
		}
		fmt.Printf("[%s] device %s: %s brightness=%d white_temp=%d rgb=%02x%02x%02x\n",
			ts, status.DeviceIDString(), state,
			status.Brightness, status.WhiteTemp,
			status.RGB[0], status.RGB[1], status.RGB[2])
	}
}

// onCmd turns a device on
var onCmd = &cobra.Command{
	Use:   "on <device-id>",
	Short: "Turn a device on",
	Example: `  # Turn on device 216844946
  recync on 216844946`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetState(args[0], true)
	},
}

// offCmd turns a device off
var offCmd = &cobra.Command{
	Use:   "off <device-id>",
	Short: "Turn a device off",
	Example: `  # Turn off device 216844946
  recync off 216844946`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetState(args[0], false)
	},
}

func init() {
	onCmd.Flags().IntVar(&connectTimeout, "timeout", 15, "Seconds to wait for the relay connection")
	offCmd.Flags().IntVar(&connectTimeout, "timeout", 15, "Seconds to wait for the relay connection")
}

func runSetState(deviceID string, on bool) error {
	_, c, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}
	defer c.Stop()

	if err := waitConnected(c, time.Duration(connectTimeout)*time.Second); err != nil {
		return err
	}

	if on {
		err = c.TurnOn(deviceID)
	} else {
		err = c.TurnOff(deviceID)
	}
	if err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	state := "off"
	if on {
		state = "on"
	}
	fmt.Printf("Device %s turned %s\n", deviceID, state)
	return nil
}

// waitConnected blocks until the relay session reaches connected, or
// fails after the given timeout.
func waitConnected(c *coordinator.Coordinator, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !c.Session().Connected() {
		if time.Now().After(deadline) {
			return fmt.Errorf("relay connection not established within %s", timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}
