package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/prajwalreddypr/Expat-Ease/internal/api"
	"github.com/prajwalreddypr/Expat-Ease/internal/audit"
	"github.com/prajwalreddypr/Expat-Ease/internal/auth"
	"github.com/prajwalreddypr/Expat-Ease/internal/config"
	"github.com/prajwalreddypr/Expat-Ease/internal/db"
	"github.com/prajwalreddypr/Expat-Ease/internal/mcp"
	"github.com/prajwalreddypr/Expat-Ease/internal/storage"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "version":
		fmt.Printf("expat-ease %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`expat-ease — settlement companion backend

Usage:
  expat-ease serve [--config config.toml] [--addr :8080]
  expat-ease mcp [--config config.toml]
  expat-ease version
  expat-ease help

Commands:
  serve     Start the HTTP server
  mcp       Serve lookup tools over MCP stdio
  version   Print version
  help      Show this help`)
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	store, err := storage.New(cfg.Uploads.Dir, cfg.Uploads.MaxSizeMB)
	if err != nil {
		log.Fatalf("preparing upload dir: %v", err)
	}

	a := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin)
	apiHandler := api.New(database, a, store, cfg)

	if cfg.Audit.Enabled {
		logger := audit.NewSQLiteLogger(database.DB)
		defer logger.Close()
		apiHandler.SetAuditLogger(logger)
	}

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	// Uploaded documents are private record attachments, but download links
	// are served straight from disk.
	uploadsFS := http.FileServer(http.Dir(cfg.Uploads.Dir))
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", uploadsFS))

	handler := api.SecurityHeaders(api.CORS(cfg.CORS.AllowedOrigins, mux))

	slog.Info("starting", "version", version, "addr", cfg.Server.Addr)
	slog.Info("database", "path", cfg.Database.Path)
	slog.Info("uploads", "dir", cfg.Uploads.Dir, "max_mb", cfg.Uploads.MaxSizeMB)
	if cfg.Audit.Enabled {
		slog.Info("audit trail enabled")
	}

	if err := http.ListenAndServe(cfg.Server.Addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()

	if err := mcp.ServeStdio(mcp.NewServer(database)); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
