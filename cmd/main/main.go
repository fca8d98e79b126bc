package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"scm-scheduler/src/config"
	"scm-scheduler/src/logger"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(conf, conf.Name)

	// Setup Components
	app, err := setupApp(conf, appLogger)
	if err != nil {
		appLogger.Critical("Startup failed: %v", err)
	}
	defer app.Close()

	// Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Servers (blocks until a signal or a server failure)
	if err := runServers(ctx, app, conf, appLogger); err != nil {
		appLogger.Error("Server failed: %v", err)
		app.Close()
		os.Exit(1)
	}
	appLogger.Info("Shutdown complete.")
}
