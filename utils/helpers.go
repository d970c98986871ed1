package utils

import (
	"bytes"
	"net/http"
)

const (
	FormatBMP     = "bmp"
	FormatPNG     = "png"
	FormatRaw     = "raw"
	FormatUnknown = "unknown"
)

// DetectFormat sniffs the leading bytes of data and classifies the container.
// Packed pixel buffers have no magic and come back as FormatRaw.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return FormatUnknown
	}
	// BMP: 42 4D
	if data[0] == 'B' && data[1] == 'M' {
		return FormatBMP
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return FormatPNG
	}
	// Fallback to net/http sniffing for anything else with a signature.
	switch http.DetectContentType(data) {
	case "image/bmp":
		return FormatBMP
	case "image/png":
		return FormatPNG
	}
	return FormatRaw
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// BytesReader creates an io.Reader backed by b without allocation.
func BytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
