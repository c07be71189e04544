package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/logtrace"
	"github.com/deskhand/deskhand/internal/connector/config"
	"github.com/deskhand/deskhand/internal/connector/rundeck"
	"github.com/deskhand/deskhand/internal/connector/server"
	"github.com/deskhand/deskhand/internal/connector/servicenow"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("connector failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog := log.With().Str("state", "init").Logger()

	opt := parseFlags()

	slog.Info().Str("config_file", opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(opt.configFile); err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}

	if !config.Config().ServiceNow.Configured() {
		slog.Warn().Msg("ServiceNow credentials not set, ticket calls will fail")
	}
	if !config.Config().Rundeck.Configured() {
		slog.Warn().Msg("Rundeck token not set, job runs will fail")
	}

	tickets := servicenow.NewClient(&config.Config().ServiceNow)
	runner := rundeck.NewClient(&config.Config().Rundeck)

	serverErrors, shutdownServer, err := createConnectorServer(ctx, tickets, runner)
	if err != nil {
		return fmt.Errorf("creating connector server: %w", err)
	}

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	}

	slog.Info().Msg("connector stopped")
	return nil
}

func createConnectorServer(ctx context.Context, tickets server.TicketClient, runner server.JobRunner) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()
	s, err := server.CreateNewServer(tickets, runner)
	if err != nil {
		return nil, nil, fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              ":" + config.Config().ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info().Str("port", config.Config().ServerPort).Msg("connector started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	return serverErrors, shutdown, nil
}

const DefaultConfigFile = "/etc/deskhand/connector.conf"

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.configFile, "config", DefaultConfigFile, "Path to the config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
