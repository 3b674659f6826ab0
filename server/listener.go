package server

import (
	"context"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ListenWithIPv6Fallback attempts to bind the server on IPv6 first, falling
// back to IPv4. Keeps the server usable on IPv6-only private networks while
// staying compatible with IPv4-only environments.
func ListenWithIPv6Fallback(app *fiber.App, port string, startupStart time.Time) error {
	addrIPv6 := "[::]:" + port

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			if network != "tcp6" {
				return nil
			}

			var sockErr error
			if controlErr := c.Control(func(fd uintptr) {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.IPPROTO_IPV6, syscall.IPV6_V6ONLY, 0)
			}); controlErr != nil {
				return controlErr
			}
			return sockErr
		},
	}

	ln6, err := lc.Listen(context.Background(), "tcp6", addrIPv6)
	if err == nil {
		log.Printf("HTTP server listening on %s (dual-stack) - startup time: %v", addrIPv6, time.Since(startupStart))
		return app.Listener(ln6)
	}

	log.Printf("IPv6 bind on %s failed (%v), falling back to IPv4", addrIPv6, err)

	addrIPv4 := "0.0.0.0:" + port
	ln4, err := net.Listen("tcp4", addrIPv4)
	if err != nil {
		log.Printf("IPv4 bind on %s failed: %v", addrIPv4, err)
		return err
	}

	log.Printf("HTTP server listening on %s (IPv4 only) - startup time: %v", addrIPv4, time.Since(startupStart))
	return app.Listener(ln4)
}
