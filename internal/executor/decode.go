package executor

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// maxDecodedSize caps decompressed bodies (compression bomb protection).
const maxDecodedSize = 2 * 1024 * 1024

// decodeBody decompresses a response body according to its
// Content-Encoding. Supports gzip, deflate and brotli; anything else,
// including failed decompression, returns the body unchanged.
func decodeBody(body []byte, contentEncoding string) ([]byte, bool) {
	if len(body) == 0 || contentEncoding == "" {
		return body, false
	}

	// "gzip, deflate" style lists: the first token is the outermost coding.
	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))
	if encoding == "" || encoding == "identity" {
		return body, false
	}

	var reader io.ReadCloser
	var err error

	switch encoding {
	case "gzip":
		reader, err = gzip.NewReader(bytes.NewReader(body))
	case "deflate":
		reader = flate.NewReader(bytes.NewReader(body))
	case "br":
		reader = io.NopCloser(brotli.NewReader(bytes.NewReader(body)))
	default:
		return body, false
	}

	if err != nil {
		return body, false
	}
	defer reader.Close()

	decoded, err := io.ReadAll(io.LimitReader(reader, maxDecodedSize))
	if err != nil {
		return body, false
	}

	return decoded, true
}
