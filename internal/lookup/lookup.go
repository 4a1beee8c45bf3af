// Package lookup resolves the caller's public IP, provider, and location
// through a third-party IP geolocation HTTP service, with an optional local
// GeoLite2 fallback when the service is unreachable.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
)

// Info is the payload returned by the geolocation service.
type Info struct {
	IP          string `json:"ip"`
	City        string `json:"city"`
	Region      string `json:"region"`
	CountryName string `json:"country_name"`
	Org         string `json:"org"`
}

// ISP returns the organization name, or "Unknown" when the lookup produced none.
func (i *Info) ISP() string {
	if i == nil || strings.TrimSpace(i.Org) == "" {
		return "Unknown"
	}
	return i.Org
}

// Location returns a "city, region" string, or "Unknown" when both are empty.
func (i *Info) Location() string {
	if i == nil {
		return "Unknown"
	}
	city := strings.TrimSpace(i.City)
	region := strings.TrimSpace(i.Region)
	switch {
	case city != "" && region != "":
		return city + ", " + region
	case city != "":
		return city
	case region != "":
		return region
	default:
		return "Unknown"
	}
}

// Client queries the geolocation service.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	geoReader  *geoip2.Reader
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithGeoReader attaches a GeoLite2 City database used as a local fallback
// when the HTTP service fails. May be nil (fallback disabled).
func WithGeoReader(reader *geoip2.Reader) Option {
	return func(c *Client) {
		c.geoReader = reader
	}
}

// NewClient creates a lookup client for the given service URL.
func NewClient(url string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenGeoDB opens a GeoLite2 database file. Returns nil without error when
// path is empty or the file is missing; the local fallback is optional.
func OpenGeoDB(path string, logger *slog.Logger) *geoip2.Reader {
	if path == "" {
		logger.Debug("GeoLite2 database path not configured - local fallback disabled")
		return nil
	}

	reader, err := geoip2.Open(path)
	if err != nil {
		logger.Warn("Failed to open GeoLite2 database - local fallback disabled",
			slog.String("path", path),
			slog.Any("error", err))
		return nil
	}

	logger.Info("GeoLite2 database initialized", slog.String("path", path))
	return reader
}

// Lookup queries the geolocation service once and decodes its response.
func (c *Client) Lookup(ctx context.Context) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}

	c.logger.Debug("Geolocation lookup completed",
		slog.String("ip", info.IP),
		slog.String("org", info.Org))

	return &info, nil
}

// LookupWithFallback queries the HTTP service and, on failure, resolves
// clientIP against the local GeoLite2 database when one is configured. The
// local database carries no organization data, so Org stays empty there.
func (c *Client) LookupWithFallback(ctx context.Context, clientIP string) (*Info, error) {
	info, err := c.Lookup(ctx)
	if err == nil {
		return info, nil
	}

	c.logger.Warn("Geolocation lookup failed", slog.Any("error", err))

	if c.geoReader == nil {
		return nil, err
	}

	parsed := net.ParseIP(clientIP)
	if parsed == nil {
		return nil, err
	}

	city, geoErr := c.geoReader.City(parsed)
	if geoErr != nil {
		c.logger.Warn("GeoLite2 fallback lookup failed",
			slog.String("ip", clientIP),
			slog.Any("error", geoErr))
		return nil, err
	}

	fallback := &Info{
		IP:          clientIP,
		City:        city.City.Names["en"],
		CountryName: city.Country.Names["en"],
	}
	if len(city.Subdivisions) > 0 {
		fallback.Region = city.Subdivisions[0].Names["en"]
	}

	c.logger.Debug("Resolved location from local GeoLite2 database",
		slog.String("ip", clientIP),
		slog.String("city", fallback.City))

	return fallback, nil
}
