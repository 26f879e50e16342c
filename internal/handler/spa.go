package handler

import (
	"database/sql"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ClientRoutes are the paths the single-page app renders itself.
var ClientRoutes = []string{
	"/login", "/signup", "/reset-password",
	"/chores", "/groceries", "/expenses", "/reminders",
	"/family", "/profile",
	"/about", "/contact", "/privacy", "/terms",
}

// SPA serves static files from dir and answers "/" and the client routes
// with index.html. Anything else is a 404.
func SPA(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		clean := path.Clean("/" + r.URL.Path)
		if clean == "/" || slices.Contains(ClientRoutes, clean) {
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFile(w, r, index)
			return
		}
		if fi, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean))); err == nil && !fi.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// Health handles GET /health.
func Health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
