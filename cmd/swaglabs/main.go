// Command swaglabs-runner runs the Swag Labs UI test suite.
package main

import "github.com/devicelab-dev/swaglabs-runner/pkg/cli"

func main() {
	cli.Execute()
}
