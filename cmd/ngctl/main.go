// main.go - Terminal client for netgauge
package main

import (
	"netgauge/internal/cli"
)

func main() {
	cli.Execute()
}
