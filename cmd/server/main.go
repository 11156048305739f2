// Copyright 2026 The OpenTrusty Authors
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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentrusty/oauth2engine/internal/audit"
	"github.com/opentrusty/oauth2engine/internal/authorizer"
	"github.com/opentrusty/oauth2engine/internal/config"
	"github.com/opentrusty/oauth2engine/internal/endpoint"
	"github.com/opentrusty/oauth2engine/internal/extension"
	"github.com/opentrusty/oauth2engine/internal/issuer"
	"github.com/opentrusty/oauth2engine/internal/observability/logger"
	"github.com/opentrusty/oauth2engine/internal/observability/metrics"
	"github.com/opentrusty/oauth2engine/internal/observability/tracing"
	"github.com/opentrusty/oauth2engine/internal/policy"
	"github.com/opentrusty/oauth2engine/internal/registrar"
	"github.com/opentrusty/oauth2engine/internal/scope"
	"github.com/opentrusty/oauth2engine/internal/solicitor"
	"github.com/opentrusty/oauth2engine/internal/store/postgres"
	transportHTTP "github.com/opentrusty/oauth2engine/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting oauth2engine")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	var recorder *metrics.Recorder
	meter, err := metrics.New(ctx, metrics.Config{Enabled: cfg.Observability.OTELEnabled}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	} else if recorder, err = metrics.NewRecorder(meter); err != nil {
		slog.Error("failed to register engine counters", logger.Error(err))
	}

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	clientBackend := postgres.NewClientBackend(db)
	passwordPolicy := registrar.NewPBKDF2Policy(cfg.Security.PBKDF2Iterations)
	reg := registrar.New(clientBackend, passwordPolicy)

	var auth authorizer.Authorizer
	var iss issuer.Issuer
	switch cfg.Engine.Strategy {
	case "assertion":
		key := []byte(cfg.Engine.AssertionKey)
		auth = authorizer.NewAssertionAuthorizer(key)
		iss = issuer.NewAssertionIssuer(key)
	default:
		auth = authorizer.NewRandomAuthorizer()
		iss = issuer.NewRandomIssuer()
	}

	extensions := extension.NewRegistry()
	pkce := extension.NewPKCE(cfg.Engine.PKCERequired)
	pkce.AllowPlain = cfg.Engine.PKCEAllowPlain
	extensions.AddAuthorization(pkce)
	extensions.AddAccessToken(pkce)

	ep := &endpoint.Endpoint{
		Reg:                        reg,
		Authorizer:                 auth,
		Issuer:                     iss,
		ScopePolicy:                policy.Static{scope.MustParse("default")},
		Solicitor:                  solicitor.AllowAll("resource-owner"),
		Extensions:                 extensions,
		CodeTTL:                    cfg.Engine.CodeTTL,
		TokenTTL:                   cfg.Engine.TokenTTL,
		AllowBodyClientCredentials: cfg.Engine.AllowBodyClientCredentials,
		Realm:                      cfg.Engine.Realm,
	}

	auditLogger := audit.NewSlogLogger()
	handler := transportHTTP.NewHandler(ep, auditLogger, recorder)
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}
