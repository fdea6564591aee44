package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/form3tech-oss/pact-consumer/internal/app/configuration"
	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// PACT_ENV_FILE has to be known before the rest of the configuration is read.
	if envFile := os.Getenv("PACT_ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.WithError(err).Fatalf("unable to load env file %s", envFile)
		}
	}

	config, err := configuration.NewStubConfigFromEnv()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx := context.Background()
	stubs := configuration.NewStubs()
	for _, file := range config.PactFiles {
		log.Infof("setting up stub for %s", file)
		data, err := os.ReadFile(file)
		if err != nil {
			log.WithError(err).Fatalf("unable to read pact file %s", file)
		}
		definitions, err := contract.ReadInteractionDefinitions(data)
		if err != nil {
			log.WithError(err).Fatalf("unable to load pact file %s", file)
		}
		service, err := configuration.StartMockServiceFromDefinitions(ctx, definitions, config.MockServer)
		if err != nil {
			log.WithError(err).Fatalf("unable to start stub for %s", file)
		}
		if err := stubs.Add(filepath.Clean(file), service); err != nil {
			log.WithError(err).Fatalf("unable to register stub for %s", file)
		}
	}

	adminServer := configuration.ServeAdminAPI(config.AdminPort, stubs)

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := adminServer.Close(); err != nil {
		log.WithError(err).Error("unable to close admin server")
	}

	results, err := stubs.StopAll(ctx)
	if err != nil {
		log.WithError(err).Error("unable to stop stubs")
	}
	for name, mismatches := range results {
		for _, m := range mismatches {
			log.WithField("pact", name).Warn(m.Describe())
		}
	}
	configuration.ShutdownAllServers(ctx)
}
