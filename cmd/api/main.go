// Command api starts the equipment cost HTTP server on its own, without
// the rest of the CLI. `equipcost serve` wraps the same wiring.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"equipcost_forecast/pkg/api"
	"equipcost_forecast/pkg/core/config"
	"equipcost_forecast/pkg/core/store"
)

func main() {
	configPath := flag.String("config", "config/equipcost.yaml", "path to the yaml config")
	host := flag.String("host", "0.0.0.0", "listen address")
	port := flag.Int("port", 8000, "listen port")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := store.Init(cfg.DatabaseURL); err != nil {
		logger.WithError(err).Fatal("failed to open database")
	}
	defer store.Close()
	conn := store.Get()
	if err := store.AutoMigrate(conn); err != nil {
		logger.WithError(err).Fatal("failed to migrate schema")
	}

	server, err := api.NewServer(conn, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build server")
	}
	defer server.Close()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	if err := server.Run(addr); err != nil {
		logger.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
