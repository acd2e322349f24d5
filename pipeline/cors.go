package pipeline

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborstack/keel/config"
)

// CORS sets cross-origin headers from the configured options and answers
// OPTIONS preflight directly. A zero-value option set behaves permissively
// (any origin) because ApplyDefaults fills it with "*".
func CORS(opts config.CORSOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		setCORSHeaders(c.Writer.Header(), c.GetHeader("Origin"), opts)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func setCORSHeaders(h http.Header, origin string, opts config.CORSOptions) {
	if origin == "" || !isAllowedOrigin(origin, opts.AllowedOrigins) {
		return
	}
	h.Set("Access-Control-Allow-Origin", origin)
	if len(opts.AllowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(opts.AllowedMethods, ", "))
	}
	if len(opts.AllowedHeaders) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(opts.AllowedHeaders, ", "))
	}
	if opts.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func isAllowedOrigin(origin string, allowed []string) bool {
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	return false
}
