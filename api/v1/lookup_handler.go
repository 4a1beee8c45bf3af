package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"netgauge/internal/config"
	"netgauge/internal/lookup"
	"netgauge/internal/settings"
)

// lookupClient is the process-wide geolocation client, set during app boot.
// Tests swap it for a client pointed at a local server.
var lookupClient *lookup.Client

// SetLookupClient installs the geolocation client used by LookupHandler.
func SetLookupClient(client *lookup.Client) {
	lookupClient = client
}

// LookupHandler proxies the third-party IP geolocation service. Successful
// responses are cached in the settings table so the service is queried at
// most once per cache TTL.
func LookupHandler(ctx *cartridge.Context) error {
	db := ctx.DB()
	cfg := config.GetConfig()

	// Serve the cached snapshot while it is fresh.
	snapshot, err := settings.GetLastLookup(db)
	if err != nil {
		ctx.Logger.Warn("Failed to read cached lookup", slog.Any("error", err))
	}
	ttl := time.Duration(cfg.LookupCacheSeconds) * time.Second
	if snapshot != nil && time.Since(snapshot.FetchedAt) < ttl {
		return ctx.JSON(lookup.Info{
			IP:          snapshot.IP,
			City:        snapshot.City,
			Region:      snapshot.Region,
			CountryName: snapshot.CountryName,
			Org:         snapshot.Org,
		})
	}

	if lookupClient == nil {
		ctx.Logger.Error("Lookup client not configured")
		return ctx.Status(http.StatusBadGateway).JSON(fiber.Map{
			"error": "Lookup unavailable",
		})
	}

	info, err := lookupClient.LookupWithFallback(ctx.Ctx.UserContext(), getClientIP(ctx.Ctx))
	if err != nil {
		// Stale cache beats nothing when the service is down.
		if snapshot != nil {
			ctx.Logger.Warn("Lookup failed, serving stale snapshot", slog.Any("error", err))
			return ctx.JSON(lookup.Info{
				IP:          snapshot.IP,
				City:        snapshot.City,
				Region:      snapshot.Region,
				CountryName: snapshot.CountryName,
				Org:         snapshot.Org,
			})
		}
		ctx.Logger.Error("Lookup failed", slog.Any("error", err))
		return ctx.Status(http.StatusBadGateway).JSON(fiber.Map{
			"error": "Lookup failed",
		})
	}

	saved := &settings.LookupSnapshot{
		IP:          info.IP,
		City:        info.City,
		Region:      info.Region,
		CountryName: info.CountryName,
		Org:         info.Org,
		FetchedAt:   time.Now().UTC(),
	}
	if err := settings.SaveLastLookup(db, ctx.Logger, saved); err != nil {
		ctx.Logger.Warn("Failed to cache lookup result", slog.Any("error", err))
	}

	return ctx.JSON(info)
}
