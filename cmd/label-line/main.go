package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ironsheep/label-line-mcp/internal/config"
	"github.com/ironsheep/label-line-mcp/internal/logger"
	"github.com/ironsheep/label-line-mcp/internal/ocr"
	"github.com/ironsheep/label-line-mcp/internal/pipeline"
	"github.com/ironsheep/label-line-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	mode := "mcp"
	var args []string
	if len(os.Args) > 1 {
		mode, args = os.Args[1], os.Args[2:]
	}

	switch mode {
	case "--version", "-v", "version":
		fmt.Printf("label-line %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		printUsage()
		return
	case "mcp", "serve", "extract":
	default:
		fmt.Fprintf(os.Stderr, "label-line: unknown command %q\n\n", mode)
		printUsage()
		os.Exit(2)
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "label-line: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "label-line: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	opts, ocrOpts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}
	engine := ocr.NewTesseract(ocrOpts)
	svc := pipeline.NewService(engine, opts, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "serve":
		err = runHTTP(ctx, cfg.HTTP, svc, log)
	case "extract":
		err = runExtract(ctx, args, svc, os.Stdout)
	default:
		log.Debug("Starting MCP server",
			zap.String("version", Version),
			zap.String("build_time", BuildTime),
			zap.String("commit", GitCommit),
			zap.Bool("ocr_available", engine.Info().Available),
		)
		err = server.New(svc, log, Version).Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		log.Error("label-line failed", zap.String("mode", mode), zap.Error(err))
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("label-line - find the target line on a shipping label")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  label-line [mcp]                 Serve MCP over stdin/stdout (default)")
	fmt.Println("  label-line serve                 Serve the HTTP API")
	fmt.Println("  label-line extract [flags] FILE  Extract the target line from an image")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  ENV=local|dev|prod            Selects config/<env>.yaml and log format")
	fmt.Println("  LABEL_LINE_CONFIG=path        Use this YAML file instead")
	fmt.Println("  LABEL_LINE_LOG_LEVEL=debug    Override the log level")
	fmt.Println()
	fmt.Println("In mcp mode the server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
