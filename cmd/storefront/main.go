package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/techstore/storefront/internal/cli"
	"github.com/techstore/storefront/pkg/authclient"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("STOREFRONT_URL", "http://localhost:8080"), "storefront base URL")
	cachePath := flag.String("cache", defaultCachePath(), "session cache file")
	verbose := flag.Bool("v", false, "log session activity")
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	coordinator, err := authclient.NewCoordinator(authclient.Config{
		BaseURL: *server,
		Cache:   authclient.NewFileStore(*cachePath),
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.NewApp(coordinator, os.Stdin, os.Stdout).Run(ctx)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultCachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront-session.json"
	}
	return filepath.Join(dir, "storefront", "session.json")
}
