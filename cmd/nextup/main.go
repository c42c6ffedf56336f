// nextup - court queue and scoreboard server
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ernie/nextup/internal/api"
	"github.com/ernie/nextup/internal/config"
	"github.com/ernie/nextup/internal/namegen"
	"github.com/ernie/nextup/internal/reaper"
	"github.com/ernie/nextup/internal/storage"
	"github.com/klauspost/compress/gzhttp"
	flag "github.com/spf13/pflag"
)

var version = "dev"

const defaultConfigPath = "/etc/nextup/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "courts":
		cmdCourts(os.Args[2:])
	case "version":
		fmt.Printf("nextup %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: nextup <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                     Start the queue server")
	fmt.Println("  courts list               Show all courts")
	fmt.Println("  courts create [name]      Create a court (name generated if omitted)")
	fmt.Println("  courts delete <id>        Delete a court and its queue")
	fmt.Println("  courts queue <id>         Show a court's queue")
	fmt.Println("  version                   Show version")
	fmt.Println("  help                      Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/nextup/config.yml)")
	fmt.Println("  --url <url>        Base URL of the nextup server (default: derived from config)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  nextup serve --config /etc/nextup/config.yml")
	fmt.Println("  nextup courts create \"Center Court\"")
	fmt.Println("  nextup courts queue k7mPx2QvT9WcHd3bRfLgUA")
}

// cmdServe starts the queue server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	// Determine config path; run on defaults when nothing is configured
	var cfg *config.Config
	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		}
	}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		log.Printf("No config file found, using defaults")
	}

	log.Printf("Nextup %s starting...", version)

	// Initialize storage
	names := namegen.New(rand.NewSource(time.Now().UnixNano()))
	store, err := storage.New(cfg.Database.Path, names)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	log.Printf("Database initialized at %s", cfg.Database.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the idle court reaper
	courtReaper := reaper.New(store, cfg.Courts.ReapInterval, cfg.Courts.IdleTimeout)
	courtReaper.Start(ctx)
	log.Printf("Reaping courts idle for %v every %v", cfg.Courts.IdleTimeout, cfg.Courts.ReapInterval)

	// Create HTTP router
	router := api.NewRouter(store, cfg.Server.StaticDir)
	if cfg.Server.StaticDir != "" {
		log.Printf("Serving static files from %s", cfg.Server.StaticDir)
	}

	// Start HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      gzhttp.GzipHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for signal or error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		log.Fatalf("HTTP server error: %v", err)
	}

	// Sequential shutdown
	log.Println("Shutting down HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Stopping reaper...")
	courtReaper.Stop()

	cancel()
	log.Println("Shutdown complete")
}

// CLI helper variable
var baseURL = "http://localhost:8080"

// loadCLIConfig parses the shared CLI flags and derives the server base URL
func loadCLIConfig(args []string) []string {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the nextup server")
	fs.Parse(args)

	if *url != "" {
		baseURL = *url
		return fs.Args()
	}

	cfg, err := config.Load(*configPath)
	if err == nil {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	}
	return fs.Args()
}

// cmdCourts dispatches court subcommands
func cmdCourts(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: courts subcommand required: list, create, delete, queue\n")
		os.Exit(1)
	}

	subCmd := args[0]
	remaining := loadCLIConfig(args[1:])

	var err error
	switch subCmd {
	case "list":
		err = cmdCourtsList()
	case "create":
		err = cmdCourtsCreate(remaining)
	case "delete":
		err = cmdCourtsDelete(remaining)
	case "queue":
		err = cmdCourtsQueue(remaining)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown courts command: %s (use: list, create, delete, queue)\n", subCmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdCourtsList() error {
	var courts []map[string]interface{}
	if err := getJSON("/api/courts", &courts); err != nil {
		return err
	}

	if len(courts) == 0 {
		fmt.Println("No courts")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLAST ACTIVITY")
	fmt.Fprintln(w, "--\t----\t-------------")
	for _, court := range courts {
		id := court["id"].(string)
		name := court["name"].(string)
		lastActivity := "-"
		if s, ok := court["last_activity"].(string); ok {
			lastActivity = formatTime(s)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, name, lastActivity)
	}
	return w.Flush()
}

func cmdCourtsCreate(args []string) error {
	body := map[string]string{}
	if len(args) > 0 {
		body["name"] = strings.Join(args, " ")
	}

	var court map[string]interface{}
	if err := postJSON("/api/courts", body, &court); err != nil {
		return err
	}

	fmt.Printf("Created court '%s' (%s)\n", court["name"], court["id"])
	return nil
}

func cmdCourtsDelete(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: nextup courts delete <id>")
	}
	id := args[0]

	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/courts/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	fmt.Printf("Deleted court %s\n", id)
	return nil
}

func cmdCourtsQueue(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: nextup courts queue <id>")
	}
	id := args[0]

	var resp struct {
		Queue []string `json:"queue"`
	}
	if err := getJSON("/api/courts/"+id+"/queue", &resp); err != nil {
		return err
	}

	if len(resp.Queue) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tPLAYER")
	fmt.Fprintln(w, "---\t------")
	for i, name := range resp.Queue {
		fmt.Fprintf(w, "%d\t%s\n", i+1, name)
	}
	return w.Flush()
}

func getJSON(path string, target interface{}) error {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func postJSON(path string, body, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func formatTime(isoTime string) string {
	t, err := time.Parse(time.RFC3339, isoTime)
	if err != nil {
		return isoTime
	}
	return t.Local().Format("2006-01-02 15:04")
}
