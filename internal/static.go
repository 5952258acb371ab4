package internal

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const devServerNotice = "API Server is running. To view the app, please start the frontend development server (npm run dev)."

// staticHandler serves the built web UI from dir. Paths that are not files
// get index.html so that client-side routes work; without an index.html a
// plain notice is returned instead.
func staticHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+r.URL.Path)), "/"))
		if clean != "" {
			if info, err := os.Stat(filepath.Join(dir, clean)); err == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(devServerNotice))
			return
		}
		http.ServeFile(w, r, index)
	})
}
