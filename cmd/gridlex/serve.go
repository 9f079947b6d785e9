package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/latticeforge/gridlex/internal/cliconfig"
	"github.com/latticeforge/gridlex/internal/gridserver"
	"github.com/latticeforge/gridlex/internal/indexstore"
	"github.com/latticeforge/gridlex/internal/obslog"
	"github.com/latticeforge/gridlex/internal/session"
)

var serveConfigPath string

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a gridlex.yml config file")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP+WebSocket decode-guide server",
	Long:  "Start gridserver, exposing grammar compilation and Guide sessions over HTTP and WebSocket.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveConfigPath != "" {
			os.Setenv("GRIDLEX_CONFIG", serveConfigPath)
		}
		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		log := obslog.New(obslog.Options{Level: cfg.Log.Level, Development: cfg.Log.Development})
		defer log.Sync()

		var store indexstore.Store
		if cfg.Store.Driver != "none" {
			store, err = openStore(cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				return fmt.Errorf("opening index store: %w", err)
			}
			defer store.Close()
		}

		sessionCfg := session.DefaultConfig(cfg.Server.RedisAddr)
		sessions := session.NewStore(sessionCfg)
		defer sessions.Close()

		grammars := gridserver.NewGrammarRegistry(store, obslog.Named(log, "gridserver.grammars"))
		auth := gridserver.NewAuthService(cfg.Server.JWTSigningKey, 24*time.Hour)
		svc := gridserver.NewService(grammars, sessions, time.Hour, obslog.Named(log, "gridserver"))
		stream := gridserver.NewStreamHandler(sessions, grammars, time.Hour, obslog.Named(log, "gridserver.stream"))

		router := gridserver.NewRouter(svc, auth, stream)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srvCfg := gridserver.DefaultConfig(router)
		srvCfg.Address = addr
		srv, err := gridserver.New(srvCfg)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("gridserver listening", zap.String("addr", addr))
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		successColor := color.New(color.FgGreen)
		successColor.Printf("gridserver listening on %s\n", addr)

		select {
		case err := <-errCh:
			return err
		case <-sig:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			log.Info("shutting down gridserver")
			return srv.Shutdown(ctx)
		}
	},
}
