package middleware

import (
	"compress/gzip"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig controls gzip response compression
type CompressionConfig struct {
	Level         int      // gzip level, 1-9
	ExcludedPaths []string // prefixes served uncompressed, e.g. websocket upgrades
}

func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level:         gzip.DefaultCompression,
		ExcludedPaths: []string{"/metrics", "/api/v1/live/ws"},
	}
}

// CompressionMiddleware gzips responses for clients that accept it
type CompressionMiddleware struct {
	config CompressionConfig
	pool   sync.Pool

	total      atomic.Int64
	compressed atomic.Int64
}

func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.Level < gzip.HuffmanOnly || config.Level > gzip.BestCompression {
		config.Level = gzip.DefaultCompression
	}
	cm := &CompressionMiddleware{config: config}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, cm.config.Level)
		return gz
	}
	return cm
}

// Handler returns the gin middleware
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cm.total.Add(1)

		if !acceptsGzip(c.GetHeader("Accept-Encoding")) || cm.excluded(c.Request.URL.Path) {
			c.Next()
			return
		}

		gz := cm.pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{ResponseWriter: c.Writer, writer: gz}

		defer func() {
			if c.Writer.Size() < 0 {
				// nothing written: drop the gzip footer and the header
				gz.Reset(io.Discard)
				c.Writer.Header().Del("Content-Encoding")
			} else {
				cm.compressed.Add(1)
			}
			gz.Close()
			cm.pool.Put(gz)
		}()

		c.Next()
	}
}

func (cm *CompressionMiddleware) excluded(path string) bool {
	for _, prefix := range cm.config.ExcludedPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		if strings.TrimSpace(fields[0]) != "gzip" {
			continue
		}
		for _, param := range fields[1:] {
			if q, ok := strings.CutPrefix(strings.TrimSpace(param), "q="); ok {
				if weight, err := strconv.ParseFloat(q, 64); err == nil && weight == 0 {
					return false
				}
			}
		}
		return true
	}
	return false
}

func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"total_responses":      cm.total.Load(),
		"compressed_responses": cm.compressed.Load(),
	}
}

type gzipWriter struct {
	gin.ResponseWriter
	writer *gzip.Writer
}

func (g *gzipWriter) Write(data []byte) (int, error) {
	g.Header().Del("Content-Length")
	return g.writer.Write(data)
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	g.Header().Del("Content-Length")
	return g.writer.Write([]byte(s))
}

func (g *gzipWriter) WriteHeader(code int) {
	g.Header().Del("Content-Length")
	g.ResponseWriter.WriteHeader(code)
}

func (g *gzipWriter) Flush() {
	_ = g.writer.Flush()
	g.ResponseWriter.Flush()
}
