package client

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/opd-ai/go-tracer/pkg/config"
)

// Summary captures the observable result of a completed request:
// status, selected response headers, body hash, and sizes.
type Summary struct {
	Status     string
	StatusCode int
	Headers    map[string]string
	BodyHash   string
	BodyLen    uint64
	HeaderLen  uint64
}

// HashBody returns the lowercase hex SHA-256 digest of the body
func HashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// HeaderSectionLen returns the wire size in bytes of the header
// section: one "Name: value\r\n" line per value.
func HeaderSectionLen(h http.Header) uint64 {
	var n uint64
	for name, values := range h {
		for _, v := range values {
			n += uint64(len(name) + len(": ") + len(v) + len("\r\n"))
		}
	}
	return n
}

// Summarize builds a Summary from a completed response, capturing the
// headers selected by capture.
func Summarize(parts Parts, body []byte, capture config.CaptureHeaders) Summary {
	captured := make(map[string]string)
	for name, values := range parts.Header {
		if !capture.Match(name) {
			continue
		}
		if len(values) > 0 {
			captured[name] = values[0]
		}
	}
	return Summary{
		Status:     parts.Status,
		StatusCode: parts.StatusCode,
		Headers:    captured,
		BodyHash:   HashBody(body),
		BodyLen:    uint64(len(body)),
		HeaderLen:  HeaderSectionLen(parts.Header),
	}
}
