// Package cli provides the command-line interface for swaglabs-runner.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to swaglabs.yaml (default: ./swaglabs.yaml if present)",
		EnvVars: []string{"SWAGLABS_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "appium-url",
		Usage:   "Appium server URL",
		EnvVars: []string{"APPIUM_URL"},
	},
	&cli.StringFlag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   "Platform to run on (android, mock)",
		EnvVars: []string{"SWAGLABS_PLATFORM"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"udid"},
		Usage:   "Device ID to run on (can be comma-separated)",
		EnvVars: []string{"SWAGLABS_DEVICE"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"SWAGLABS_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "swaglabs-runner",
		Usage:   "UI test suite for the Swag Labs mobile app",
		Version: Version,
		Description: `swaglabs-runner drives the Swag Labs demo app through an Appium server
and checks login, product listing and cart behavior.

Examples:
  swaglabs-runner test
  swaglabs-runner test --run 'invalid_login/*'
  swaglabs-runner --device emulator-5554,emulator-5556 test --tag cart
  swaglabs-runner -p mock test
  swaglabs-runner list`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			testCommand,
			listCommand,
			hierarchyCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
