package utils

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var privateIPBlocks []*net.IPNet

func init() {
	blocks := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	for _, cidr := range blocks {
		if _, block, err := net.ParseCIDR(cidr); err == nil {
			privateIPBlocks = append(privateIPBlocks, block)
		}
	}
}

// ClientIP returns the best-guess client address for rate limiting keys.
// X-Forwarded-For is only honored when the direct peer is a private address,
// so an external client cannot spoof its way around a limiter.
func ClientIP(c *fiber.Ctx) string {
	remote := c.IP()
	ip := net.ParseIP(remote)
	if ip == nil || !isPrivateIP(ip) {
		return remote
	}
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		parts := strings.Split(fwd, ",")
		candidate := strings.TrimSpace(parts[0])
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	return remote
}

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
