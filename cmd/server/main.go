//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"flag"
	"log"
	"strings"

	"github.com/nlouis56/vroume/internal/config"
	"github.com/nlouis56/vroume/internal/service"
	"github.com/nlouis56/vroume/pkg/logger"
)

var (
	cfg            = config.Load()
	port           int
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite run catalog")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	svc, err := service.New(
		service.WithDBPath(cfg.DBPath),
		service.WithLogger(logger.GetLogger()),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	server := NewServer(svc, &ServerConfig{
		Port:           port,
		DBPath:         cfg.DBPath,
		AllowedOrigins: origins,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
