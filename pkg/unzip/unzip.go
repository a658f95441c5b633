// Package unzip transparently decompresses gzip-encoded request
// bodies so handlers always read plain payloads. Response compression
// is handled separately by the gzip middleware on the root router.
package unzip

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/digitalvishon/taskpay/pkg/logger"
)

// gzipBody wraps the original request body, decompressing on Read.
// Close releases both the gzip reader and the underlying body.
type gzipBody struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newGzipBody(body io.ReadCloser) (*gzipBody, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}

	return &gzipBody{body: body, zr: zr}, nil
}

func (b *gzipBody) Read(p []byte) (int, error) {
	return b.zr.Read(p)
}

func (b *gzipBody) Close() error {
	if err := b.body.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return b.zr.Close()
}

// Middleware swaps the request body for a decompressing one when the
// client declares Content-Encoding gzip. A body that does not parse as
// gzip despite the declared encoding is a client error.
func Middleware(logger logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		f := func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
				body, err := newGzipBody(r.Body)
				if err != nil {
					logger.Debugf("reject request body: %s", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				r.Body = body
				defer body.Close()
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(f)
	}
}
