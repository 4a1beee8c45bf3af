package v1

import (
	"github.com/karloscodes/cartridge"

	"netgauge/internal/config"
)

// ClientConfig is the subset of server configuration the dashboard needs to
// run a test. The probe URL is configurable so self-hosters behind strict
// egress rules can point the latency sample at a reachable asset.
type ClientConfig struct {
	ProbeURL            string `json:"probe_url"`
	ProbeTimeoutSeconds int    `json:"probe_timeout_seconds"`
}

// ConfigHandler serves the client-facing configuration.
func ConfigHandler(ctx *cartridge.Context) error {
	cfg := config.GetConfig()
	return ctx.JSON(ClientConfig{
		ProbeURL:            cfg.ProbeURL,
		ProbeTimeoutSeconds: cfg.ProbeTimeoutSeconds,
	})
}
