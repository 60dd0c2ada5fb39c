package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/clipbridge/clipserver"
	"github.com/hazyhaar/clipbridge/clipstore"
	"github.com/hazyhaar/clipbridge/idgen"
	"github.com/hazyhaar/clipbridge/shield"
)

func runServe(ctx context.Context, args []string) error {
	c := newFlagSet("serve")
	listen := c.fs.String("listen", "", "listen address (overrides server.listen)")
	dbPath := c.fs.String("db", "", "SQLite path (overrides server.db_path)")
	cfg, logger, err := c.parse(args)
	if cfg == nil || err != nil {
		return err
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}

	serverID := cfg.Server.ServerID
	if serverID == "" {
		serverID = idgen.ServerID()
	} else if serverID, err = idgen.ParseServerID(serverID); err != nil {
		return err
	}

	codec, err := clipstore.ParseCodec(cfg.Server.Compression)
	if err != nil {
		return err
	}
	store, err := clipstore.Open(cfg.Server.DBPath,
		clipstore.WithCodec(codec),
		clipstore.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := clipserver.New(store, clipserver.Config{
		ServerID:    serverID,
		ServiceRoot: cfg.Server.ServiceRoot,
		MaxBody:     cfg.Server.MaxBody,
		Sanitize:    cfg.Server.Sanitize(),
		RateLimit: shield.RateLimitConfig{
			MaxRequests: cfg.Server.RateLimit.MaxRequests,
			Window:      cfg.Server.RateLimit.Window,
		},
		Logger: logger,
	})
	go srv.Run(ctx, cfg.Server.Retention)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("clipbridge: listening", "addr", cfg.Server.Listen, "server_id", serverID,
			"service_root", cfg.Server.ServiceRoot, "codec", codec.String())
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("clipbridge: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
