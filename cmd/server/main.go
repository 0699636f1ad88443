package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/jrsteele09/go-landing-page/identity"
	"github.com/jrsteele09/go-landing-page/internal/config"
	"github.com/jrsteele09/go-landing-page/profile"
	"github.com/jrsteele09/go-landing-page/server"
	"github.com/jrsteele09/go-landing-page/server/sessionstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = c.HTTPTimeout

	ctx := context.Background()
	idc, err := identity.New(ctx, identity.Options{
		Authority:    c.Authority,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		HTTPClient:   httpClient,

		CacheTTL:        c.SessionTTL,
		CacheMaxEntries: c.SessionMaxEntries,
	})
	if err != nil {
		return err
	}

	enricher := profile.NewEnricher(idc, profile.NewGraphClient(c.GraphEndpoint, httpClient), c.GetScopes())
	sessions := sessionstore.NewInMemoryRepo(c.SessionMaxEntries, c.SessionTTL)

	handler, err := server.New(c, idc, sessions, enricher)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func setupLogging(c *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if c.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
