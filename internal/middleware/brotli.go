package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// brotliMinLength is the smallest body worth compressing.
const brotliMinLength = 1024

// precompressed lists content types that gain nothing from another pass:
// xlsx exports are zip archives and uploaded images are already encoded.
var precompressed = []string{
	"application/vnd.openxmlformats",
	"application/zip",
	"image/",
}

// brotliWriter holds back the first brotliMinLength bytes. Once that much
// has been written, or the handler finishes, it decides whether to encode.
type brotliWriter struct {
	gin.ResponseWriter
	quality int
	buf     []byte
	enc     *brotli.Writer
	decided bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	if w.decided {
		if w.enc != nil {
			return w.enc.Write(data)
		}
		return w.ResponseWriter.Write(data)
	}

	w.buf = append(w.buf, data...)
	if len(w.buf) < brotliMinLength {
		return len(data), nil
	}
	if err := w.decide(true); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush serves streaming responses: whatever is buffered goes out as is.
func (w *brotliWriter) Flush() {
	if !w.decided {
		_ = w.decide(false)
	}
	if w.enc != nil {
		_ = w.enc.Flush()
	}
	w.ResponseWriter.Flush()
}

// decide picks the encoding and writes out the buffered bytes.
func (w *brotliWriter) decide(large bool) error {
	w.decided = true
	if large && compressible(w.Header().Get("Content-Type")) {
		w.Header().Set("Content-Encoding", "br")
		w.Header().Del("Content-Length")
		w.enc = brotli.NewWriterLevel(w.ResponseWriter, w.quality)
		_, err := w.enc.Write(w.buf)
		w.buf = nil
		return err
	}
	_, err := w.ResponseWriter.Write(w.buf)
	w.buf = nil
	return err
}

func (w *brotliWriter) close() error {
	if !w.decided {
		if err := w.decide(false); err != nil {
			return err
		}
	}
	if w.enc != nil {
		return w.enc.Close()
	}
	return nil
}

// Brotli compresses JSON responses for clients that accept "br".
func Brotli() gin.HandlerFunc {
	return BrotliLevel(brotli.DefaultCompression)
}

// BrotliLevel is Brotli with an explicit quality (0-11).
func BrotliLevel(quality int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}

	return func(c *gin.Context) {
		if streaming(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, quality: quality}
		c.Writer = bw
		defer func() {
			if err := bw.close(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

// streaming reports requests that must not be buffered: SSE metrics and
// WebSocket upgrades.
func streaming(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream") ||
		strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func compressible(contentType string) bool {
	for _, prefix := range precompressed {
		if strings.HasPrefix(contentType, prefix) {
			return false
		}
	}
	return true
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
