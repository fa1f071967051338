package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/pgpmail-server/internal/api/grpc/context"
	"github.com/dtroode/pgpmail-server/internal/api/grpc/middleware"
	"github.com/dtroode/pgpmail-server/internal/api/grpc/router"
	grpcServer "github.com/dtroode/pgpmail-server/internal/api/grpc/server"
	"github.com/dtroode/pgpmail-server/internal/config"
	"github.com/dtroode/pgpmail-server/internal/crypto/pgp"
	"github.com/dtroode/pgpmail-server/internal/logger"
	"github.com/dtroode/pgpmail-server/internal/metrics"
	"github.com/dtroode/pgpmail-server/internal/model"
	"github.com/dtroode/pgpmail-server/internal/password"
	"github.com/dtroode/pgpmail-server/internal/repository/badger"
	"github.com/dtroode/pgpmail-server/internal/repository/postgres"
	"github.com/dtroode/pgpmail-server/internal/server"
	"github.com/dtroode/pgpmail-server/internal/service"
	storage "github.com/dtroode/pgpmail-server/internal/storage/minio"
	"github.com/dtroode/pgpmail-server/internal/token"
	"github.com/dtroode/pgpmail-server/internal/workpool"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewWithOptions(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	identities, envelopes, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer closeStores()

	var attachments model.Storage
	if cfg.Minio.Enabled {
		attachments, err = storage.New(ctx, storage.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to initialize attachment storage", "error", err)
		}
	} else {
		logger.Info("attachment storage disabled, messages with attachments will be refused")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	pool := workpool.New(cfg.Crypto.KeygenWorkers, cfg.Crypto.Workers, m)
	crypto := workpool.NewDispatcher(pool, pgp.NewForge(cfg.Crypto.RSABits), pgp.NewEngine(), m)
	hasher := password.NewArgon2id(cfg.KDF.Time, cfg.KDF.MemKiB, cfg.KDF.Par)
	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	identityService := service.NewIdentity(identities, crypto, crypto, hasher, tokenManager, logger)
	mailService := service.NewMail(identities, envelopes, crypto, attachments, logger)
	ctxMgr := grpcctx.NewManager()

	var limiter *middleware.KeyedLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewKeyedLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
	}

	r := router.New(identityService, mailService, identityService, ctxMgr, limiter, m, logger)
	grpcSrv := registerGRPCServer(r, fmt.Sprintf(":%s", cfg.GRPC.Port))

	var sl grpcServer.SecurityLayer
	if cfg.GRPC.EnableHTTPS {
		sl = server.NewTLSListener(cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting server on", "address", grpcSrv.Address())
		if err := grpcSrv.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = metrics.NewHTTPServer(cfg.Metrics.Addr, registry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting metrics server on", "address", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("failed to start metrics server", "error", err)
			}
		}()
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", grpcSrv.Address())
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during metrics server shutdown", "error", err)
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

// openStores opens the configured identity and envelope stores and returns a
// function releasing them.
func openStores(ctx context.Context, cfg *config.Config, logger *logger.Logger) (model.IdentityStore, model.EnvelopeStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverBadger:
		db, err := badger.Open(cfg.Storage.BadgerDir, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close badger", "error", err)
			}
		}
		return badger.NewIdentityRepository(db), badger.NewEnvelopeRepository(db), closeFn, nil
	default:
		conn, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := conn.Close(); err != nil {
				logger.Error("failed to close postgres", "error", err)
			}
		}
		return postgres.NewIdentityRepository(conn.DB), postgres.NewEnvelopeRepository(conn.DB), closeFn, nil
	}
}

func registerGRPCServer(r *router.Router, addr string) *grpcServer.GRPCServer {
	s := r.Register(grpc.MaxRecvMsgSize(32 << 20))

	reflection.Register(s)

	return grpcServer.NewGRPCServer(s, addr)
}
