package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// staticFallback serves the front-end from dir. Unknown paths outside /api
// get index.html so client-side routes survive a reload.
func staticFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if dir == "" || strings.HasPrefix(p, "/api/") || p == "/api" {
			respondFail(c, http.StatusNotFound, "Not found")
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			respondFail(c, http.StatusNotFound, "Not found")
			return
		}

		file := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+p)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			respondFail(c, http.StatusNotFound, "Not found")
			return
		}
		c.File(index)
	}
}
