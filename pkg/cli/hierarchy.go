package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/swaglabs-runner/pkg/config"
	"github.com/devicelab-dev/swaglabs-runner/pkg/logger"
)

var hierarchyCommand = &cli.Command{
	Name:  "hierarchy",
	Usage: "Print the view hierarchy of the app on the device",
	Description: `Open a session and print the page source (XML) of the current screen.
Useful for checking the accessibility ids the page objects rely on.

Examples:
  swaglabs-runner hierarchy
  swaglabs-runner --device emulator-5554 hierarchy --output screen.xml`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "output",
			Usage: "Write the hierarchy to this file instead of stdout",
		},
	},
	Action: runHierarchy,
}

func runHierarchy(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}

	logPath := config.GetLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to create log directory: %v\n", err)
	}
	if err := logger.Init(logPath, c.Bool("verbose")); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	device := buildDevices(cfg)[0]
	logger.Info("hierarchy: opening session on %s", device.ID)
	session, err := device.Open(c.Context)
	if err != nil {
		return fmt.Errorf("open session on %s: %w", device.ID, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("hierarchy: close session: %v", cerr)
		}
	}()

	source, err := session.Source()
	if err != nil {
		return fmt.Errorf("page source: %w", err)
	}

	if path := c.String("output"); path != "" {
		if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Hierarchy written to %s\n", path)
		return nil
	}
	fmt.Fprintln(c.App.Writer, source)
	return nil
}
