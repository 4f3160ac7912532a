package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mnohosten/tupledb/pkg/server"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	host := flag.String("host", "", "Server host address (overrides config)")
	port := flag.Int("port", 0, "Server port (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR (overrides config)")
	logFormat := flag.String("log-format", "", "Log format: text or json (overrides config)")
	flag.Parse()

	config, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *host != "" {
		config.Host = *host
	}
	if *port != 0 {
		config.Port = *port
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if *logFormat != "" {
		config.LogFormat = *logFormat
	}

	srv, err := server.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	// Start server (blocks until shutdown)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
