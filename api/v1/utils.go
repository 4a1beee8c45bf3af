package v1

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// getClientIP extracts the requesting client's public IP, preferring
// reverse-proxy headers over the socket address.
func getClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		for _, raw := range strings.Split(forwarded, ",") {
			clean := strings.TrimSpace(raw)
			if ip := net.ParseIP(clean); ip != nil && !isPrivateIP(ip) {
				return clean
			}
		}
	}

	for _, header := range []string{"X-Real-IP", "CF-Connecting-IP", "True-Client-IP"} {
		if value := strings.TrimSpace(c.Get(header)); value != "" {
			if ip := net.ParseIP(value); ip != nil && !isPrivateIP(ip) {
				return value
			}
		}
	}

	ip := c.IP()
	if ip != "" && ip != "0.0.0.0" && ip != "::" {
		return ip
	}

	return "127.0.0.1"
}

// isPrivateIP reports whether ip falls in a private or loopback block
// (RFC 1918, RFC 4193, RFC 4291).
func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	privateIPBlocks := []*net.IPNet{
		parseCIDR("10.0.0.0/8"),
		parseCIDR("172.16.0.0/12"),
		parseCIDR("192.168.0.0/16"),
		parseCIDR("fc00::/7"),
		parseCIDR("fe80::/10"),
		parseCIDR("::1/128"),
		parseCIDR("127.0.0.0/8"),
	}

	for _, block := range privateIPBlocks {
		if block != nil && block.Contains(ip) {
			return true
		}
	}
	return false
}

func parseCIDR(s string) *net.IPNet {
	_, block, _ := net.ParseCIDR(s)
	return block
}
