package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ernie/nextup/internal/storage"
)

// Router holds the HTTP routes and dependencies
type Router struct {
	mux       *http.ServeMux
	store     *storage.Store
	staticDir string
}

// NewRouter creates a new HTTP router
func NewRouter(store *storage.Store, staticDir string) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		store:     store,
		staticDir: staticDir,
	}

	// Court routes
	r.mux.HandleFunc("POST /api/courts", r.handleCreateCourt)
	r.mux.HandleFunc("GET /api/courts", r.handleListCourts)
	r.mux.HandleFunc("GET /api/courts/{id}", r.handleGetCourt)
	r.mux.HandleFunc("DELETE /api/courts/{id}", r.handleDeleteCourt)

	// Queue routes
	r.mux.HandleFunc("GET /api/courts/{id}/queue", r.handleGetQueue)
	r.mux.HandleFunc("POST /api/courts/{id}/join", r.handleJoinQueue)
	r.mux.HandleFunc("POST /api/courts/{id}/leave", r.handleLeaveQueue)
	r.mux.HandleFunc("POST /api/courts/{id}/next", r.handleNextPlayer)

	// Scoreboard routes
	r.mux.HandleFunc("GET /api/courts/{id}/scores", r.handleGetScores)
	r.mux.HandleFunc("POST /api/courts/{id}/scores", r.handleUpdateScores)
	r.mux.HandleFunc("POST /api/courts/{id}/scores/reset", r.handleResetScores)
	r.mux.HandleFunc("POST /api/courts/{id}/target", r.handleSetTargetScore)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	// Static files - only serve if staticDir is configured
	if staticDir != "" {
		r.mux.HandleFunc("GET /", r.handleStatic)
	}

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// handleStatic serves static files from the configured directory
// For SPA support, serves index.html for any path that doesn't match a file
func (r *Router) handleStatic(w http.ResponseWriter, req *http.Request) {
	// Clean the path
	path := filepath.Clean(req.URL.Path)
	if path == "/" {
		path = "/index.html"
	}

	// Construct full file path
	fullPath := filepath.Join(r.staticDir, path)

	// Security: ensure the path is within staticDir
	absStaticDir, _ := filepath.Abs(r.staticDir)
	absPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absPath, absStaticDir) {
		http.NotFound(w, req)
		return
	}

	// Check if file exists
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		// SPA fallback: serve index.html for unknown paths
		fullPath = filepath.Join(r.staticDir, "index.html")
		info, err = os.Stat(fullPath)
		if err != nil {
			http.NotFound(w, req)
			return
		}
	}

	// Set content type based on extension
	contentType := getContentType(fullPath)
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	// Serve the file
	http.ServeFile(w, req, fullPath)
}

// getContentType returns the content type for a file based on extension
func getContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".html":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".ico":
		return "image/x-icon"
	default:
		return ""
	}
}
