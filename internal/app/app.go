// Package app initializes and runs the bookmarks service.
// It configures logging, storage, authentication, the HTTP router and the
// optional gRPC server, and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/bkmrk/internal/auth"
	"github.com/patric-chuzhbe/bkmrk/internal/config"
	"github.com/patric-chuzhbe/bkmrk/internal/db/jsondb"
	"github.com/patric-chuzhbe/bkmrk/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bkmrk/internal/db/sqldb"
	"github.com/patric-chuzhbe/bkmrk/internal/db/storage"
	"github.com/patric-chuzhbe/bkmrk/internal/grpcserver"
	"github.com/patric-chuzhbe/bkmrk/internal/ipchecker"
	"github.com/patric-chuzhbe/bkmrk/internal/logger"
	"github.com/patric-chuzhbe/bkmrk/internal/models"
	"github.com/patric-chuzhbe/bkmrk/internal/router"
	"github.com/patric-chuzhbe/bkmrk/internal/service"
)

// App encapsulates the configuration, the storage backend and the
// transports needed to run the bookmarks service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
	grpcHandler *grpcserver.BookmarksHandler
	auth        *auth.Auth
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the service, the router and the gRPC handler
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	jwtSigningKey, err := base64.StdEncoding.DecodeString(app.cfg.JWTSecret)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `base64.StdEncoding.DecodeString()` calling: %w", err)
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.auth = auth.New(app.db, jwtSigningKey, app.cfg.TokenTTL)
	svc := service.New(app.db, app.auth, service.WithHashCost(app.cfg.BcryptCost))

	app.httpHandler = router.New(
		app.auth,
		checker,
		svc,
		router.WithAuthRateLimit(app.cfg.AuthRateLimit),
	)
	app.grpcHandler = grpcserver.NewBookmarksHandler(svc)

	return app, nil
}

// Run starts the HTTP server and, when configured, the gRPC server, and blocks
// until a termination signal arrives or one of the servers fails.
// The storage is closed before Run returns.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	httpServer := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	var grpcServer *grpc.Server
	var grpcListener net.Listener
	if a.cfg.GRPCAddr != "" {
		var err error
		grpcServer, grpcListener, err = grpcserver.NewGRPCServer(a.cfg.GRPCAddr, a.grpcHandler, a.auth)
		if err != nil {
			_ = a.db.Close()
			return fmt.Errorf("in internal/app/app.go/Run(): error while `grpcserver.NewGRPCServer()` calling: %w", err)
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Log.Infoln("HTTP server running", "RunAddr", a.cfg.RunAddr, "HTTPS", a.cfg.EnableHTTPS)

		var err error
		if a.cfg.EnableHTTPS {
			err = httpServer.ListenAndServeTLS(a.cfg.TLSCertFile, a.cfg.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server error: %w", err)
	})

	if grpcServer != nil {
		group.Go(func() error {
			logger.Log.Infoln("gRPC server running", "GRPCAddr", a.cfg.GRPCAddr)
			if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gRPC server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Log.Infoln("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		return nil
	})

	runErr := group.Wait()

	if err := a.db.Close(); err != nil {
		logger.Log.Errorln("Error calling the `a.db.Close()`: ", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}

	return runErr
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypeSQL
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypeSQL:
		return sqldb.New(
			context.Background(),
			cfg.DatabaseDriver,
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
