package pipeline

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborstack/keel/errors"
)

// Fallback handles every request no mounted route matched, in order:
// serve a static asset from the public folder, serve the root document for
// single-page-app navigation, or synthesize the 404 envelope.
func Fallback(publicFolder string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			if serveStatic(c, publicFolder) {
				return
			}
			if serveIndex(c, publicFolder) {
				return
			}
		}
		c.JSON(http.StatusNotFound, errors.Envelope{Code: http.StatusNotFound})
	}
}

// serveStatic answers with a file from the public folder when the request
// path maps to one. Path traversal is rejected by the clean-and-contain
// check.
func serveStatic(c *gin.Context, folder string) bool {
	rel := strings.TrimPrefix(c.Request.URL.Path, "/")
	if rel == "" {
		rel = "index.html"
	}

	full := filepath.Join(folder, filepath.Clean("/"+rel))
	if !strings.HasPrefix(full, filepath.Clean(folder)+string(os.PathSeparator)) {
		return false
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return false
	}
	c.File(full)
	return true
}

// serveIndex serves the application's root document for unmatched GET
// navigation, the single-page-app deployment convention.
func serveIndex(c *gin.Context, folder string) bool {
	index := filepath.Join(folder, "index.html")
	if _, err := os.Stat(index); err != nil {
		return false
	}
	c.File(index)
	return true
}
