// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/archange/pkg/config"
	"github.com/kadirpekel/archange/pkg/events"
	"github.com/kadirpekel/archange/pkg/server"
)

// ServeCmd starts the admission server.
type ServeCmd struct {
	// Port overrides the configured listen port when set.
	Port int `help:"Port to listen on (overrides config)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	config.LoadDotEnv()

	if cli.Config == "" {
		return fmt.Errorf("a config file is required (--config)")
	}
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	hub := events.NewHub()
	hub.Listen(server.EventServerReady, func(e events.Event) {
		fmt.Printf("Archange server ready at http://%s\n", cfg.Server.Address())
		fmt.Printf("   Health:  http://%s/healthz\n", cfg.Server.Address())
		fmt.Printf("   Metrics: http://%s/metrics\n", cfg.Server.Address())
		fmt.Printf("   Who-I-Am: http://%s%s/whoia\n", cfg.Server.Address(), cfg.Server.APIPrefix)
	}, true)

	srv, err := server.New(ctx, cfg, hub)
	if err != nil {
		hub.Stop(events.CategoryServer, "server bootstrap failed", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	return g.Wait()
}
