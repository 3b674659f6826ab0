package utils

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Split-stream loggers: informational output on stdout, failures on stderr,
// so collectors can route the two independently.
var (
	InfoLogger  *log.Logger
	ErrorLogger *log.Logger
)

// InitLogging wires the package loggers and points the default log package
// at stderr. Call once at startup before anything logs.
func InitLogging() {
	InfoLogger = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)

	log.SetOutput(os.Stderr)
	log.SetPrefix("SYSTEM: ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

// formatPairs renders alternating key, value metadata as " key=value" fields.
// A trailing odd element is emitted bare.
func formatPairs(metadata []interface{}) string {
	if len(metadata) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(metadata); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(metadata) {
			fmt.Fprintf(&b, "%v=%v", metadata[i], metadata[i+1])
		} else {
			fmt.Fprintf(&b, "%v", metadata[i])
		}
	}
	return b.String()
}

// LogError records a failure under a short operation tag. Nil errors are
// ignored so call sites can log unconditionally.
func LogError(operation string, err error, metadata ...interface{}) {
	if err == nil {
		return
	}
	ErrorLogger.Printf("%s: %v%s", operation, err, formatPairs(metadata))
}

// LogInfo records an informational message with optional metadata pairs.
func LogInfo(message string, metadata ...interface{}) {
	InfoLogger.Printf("%s%s", message, formatPairs(metadata))
}

// LogRequestError is LogError with the request's identity and routing
// context attached.
func LogRequestError(c *fiber.Ctx, operation string, err error, metadata ...interface{}) {
	if err == nil {
		return
	}
	requestID, _ := c.Locals("request_id").(string)
	fields := []interface{}{
		"request_id", requestID,
		"method", c.Method(),
		"path", c.Path(),
		"ip", ClientIP(c),
	}
	if userID, ok := c.Locals("user_id").(uuid.UUID); ok {
		fields = append(fields, "user_id", userID.String())
	}
	fields = append(fields, metadata...)
	ErrorLogger.Printf("%s: %v%s", operation, err, formatPairs(fields))
}
