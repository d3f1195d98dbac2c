package middleware

import (
	"net"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ParseCIDRs skips entries that do not parse.
func ParseCIDRs(cidrs []string, log *zap.Logger) []*net.IPNet {
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			log.Warn("Skipping invalid CIDR", zap.String("cidr", cidr), zap.Error(err))
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// IsAllowedIP checks whether ip falls inside one of the blocks.
func IsAllowedIP(ip string, blocks []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, block := range blocks {
		if block.Contains(parsed) {
			return true
		}
	}
	return false
}

// AllowCIDRs rejects clients outside the given networks with 403.
func AllowCIDRs(cidrs []string, log *zap.Logger) fiber.Handler {
	blocks := ParseCIDRs(cidrs, log)
	return func(c *fiber.Ctx) error {
		if !IsAllowedIP(c.IP(), blocks) {
			log.Warn("Rejected request from disallowed IP", zap.String("ip", c.IP()), zap.String("path", c.Path()))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "Forbidden",
				"message": "Access denied",
			})
		}
		return c.Next()
	}
}
