package utils

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureErrorLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := ErrorLogger
	ErrorLogger = log.New(&buf, "", 0)
	t.Cleanup(func() { ErrorLogger = orig })
	return &buf
}

func TestLogErrorFormatsMetadataPairs(t *testing.T) {
	buf := captureErrorLog(t)

	LogError("LEAD_CREATE", errors.New("boom"), "lead_id", "42")
	assert.Equal(t, "LEAD_CREATE: boom lead_id=42\n", buf.String())
}

func TestLogErrorIgnoresNilError(t *testing.T) {
	buf := captureErrorLog(t)

	LogError("LEAD_CREATE", nil, "lead_id", "42")
	assert.Empty(t, buf.String())
}

func TestFormatPairsHandlesOddMetadata(t *testing.T) {
	assert.Equal(t, "", formatPairs(nil))
	assert.Equal(t, " a=1 b", formatPairs([]interface{}{"a", 1, "b"}))
}
