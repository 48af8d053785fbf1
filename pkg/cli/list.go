package cli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/swaglabs-runner/pkg/scenario"
)

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "List the scenarios in the catalogue",
	Description: `List scenario names, tags and descriptions in run order.
Accepts the same selection flags as test.

Examples:
  swaglabs-runner list
  swaglabs-runner list --tag cart`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "run",
			Usage: "Only list scenarios whose name matches this glob",
		},
		&cli.StringSliceFlag{
			Name:  "tag",
			Usage: "Only list scenarios with one of these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tag",
			Usage: "Hide scenarios with any of these tags",
		},
	},
	Action: runList,
}

func runList(c *cli.Context) error {
	selected, err := scenario.Select(scenario.Catalogue(), scenario.Filter{
		Pattern:     c.String("run"),
		IncludeTags: c.StringSlice("tag"),
		ExcludeTags: c.StringSlice("exclude-tag"),
	})
	if err != nil {
		return err
	}

	w := c.App.Writer
	for _, s := range selected {
		fmt.Fprintf(w, "  %-34s %s%-16s%s %s\n",
			s.Name, color(colorGray), "["+strings.Join(s.Tags, ",")+"]", color(colorReset), s.Description)
	}
	fmt.Fprintf(w, "\n  %d scenarios\n", len(selected))
	return nil
}
