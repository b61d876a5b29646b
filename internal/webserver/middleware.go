package webserver

import (
	"compress/gzip"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zstd"
)

// RequestLogger logs one line per request with method, path, status and
// duration.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		)
	}
}

type compressResponseWriter struct {
	gin.ResponseWriter
	writer io.Writer
}

func (w *compressResponseWriter) Write(b []byte) (int, error) {
	return w.writer.Write(b)
}

func (w *compressResponseWriter) WriteString(s string) (int, error) {
	return w.writer.Write([]byte(s))
}

// CompressionMiddleware compresses responses for clients that accept zstd
// or gzip.
func CompressionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check Accept-Encoding header
		acceptEncoding := c.GetHeader("Accept-Encoding")

		var writer io.WriteCloser

		if strings.Contains(acceptEncoding, "zstd") {
			c.Header("Content-Encoding", "zstd")
			encoder, _ := zstd.NewWriter(c.Writer,
				zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
				zstd.WithWindowSize(1<<23))
			writer = encoder
		} else if strings.Contains(acceptEncoding, "gzip") {
			c.Header("Content-Encoding", "gzip")
			writer = gzip.NewWriter(c.Writer)
		}

		if writer == nil {
			c.Next()
			return
		}

		c.Writer.Header().Del("Content-Length") // Can't know compressed size
		c.Writer = &compressResponseWriter{ResponseWriter: c.Writer, writer: writer}

		// Deferred so a panicking handler still flushes and releases the
		// encoder once Recovery regains control.
		defer writer.Close()

		c.Next()
	}
}
