package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EgorLis/retail-pos/internal/config"
	"github.com/EgorLis/retail-pos/internal/domain"
	redisx "github.com/EgorLis/retail-pos/internal/infra/cache/redis"
	"github.com/EgorLis/retail-pos/internal/infra/database/filestore"
	"github.com/EgorLis/retail-pos/internal/infra/database/postgres"
	"github.com/EgorLis/retail-pos/internal/infra/hqclient"
	"github.com/EgorLis/retail-pos/internal/infra/lock"
	s3storage "github.com/EgorLis/retail-pos/internal/infra/storage/s3"
	"github.com/EgorLis/retail-pos/internal/logging"
	"github.com/EgorLis/retail-pos/internal/service"
	"github.com/EgorLis/retail-pos/internal/transport/web"
	"github.com/EgorLis/retail-pos/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

type App struct {
	config *config.Config
	server *web.Server
	syncer *worker.Syncer
	log    *zap.Logger
	store  domain.DocumentStore
	cache  *redisx.Locker
}

func Build(ctx context.Context) (*App, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed load config: %w", err)
	}

	root := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cfg.AppEnv == "dev",
	}).With(zap.String("node", cfg.NodeID))
	base := root.Named("app")
	base.Info("configuration" + cfg.String())

	a := &App{config: cfg, log: base}
	probes := web.Probes{}

	// блокировка документа: Redis, если узлов несколько, иначе в процессе
	var locker domain.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		base.Info("init Redis")
		rc := redisx.New(redisx.Config{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		}, root.Named("redis"))
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, fmt.Errorf("failed init redis: %w", err)
		}
		locker, a.cache, probes.Cache = rc, rc, rc
		base.Info("Redis is initialized")
	}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		base.Info("init PostgreSQL")
		pg, err := postgres.NewPGRepo(ctx, root.Named("postgres"), cfg.GetDSN(), cfg.DBScheme, cfg.NodeID, locker)
		if err != nil {
			a.closeInfra()
			return nil, fmt.Errorf("failed init postgres: %w", err)
		}
		a.store = pg
	default:
		base.Info("init file store", zap.String("dir", cfg.DataDir))
		fs, err := filestore.New(root.Named("filestore"), cfg.DataDir, cfg.NodeID, locker)
		if err != nil {
			a.closeInfra()
			return nil, fmt.Errorf("failed init file store: %w", err)
		}
		a.store = fs
	}
	probes.Store = a.store

	var backupStorage domain.BackupStorage
	if cfg.S3Endpoint != "" {
		base.Info("init S3 storage")
		s3, err := s3storage.New(ctx, s3storage.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PathStyle: cfg.S3PathStyle,
		}, root.Named("s3"))
		if err != nil {
			a.closeInfra()
			return nil, fmt.Errorf("failed init s3: %w", err)
		}
		backupStorage, probes.Storage = s3, s3
	}

	// HQ принимает синхронизацию, магазин её отправляет
	var hq service.HQClient
	if !cfg.IsHQ() {
		hq = hqclient.New(hqclient.Config{
			BaseURL: cfg.HQURL,
			NodeID:  cfg.NodeID,
			Timeout: cfg.HTTPTimeout,
		}, root)
	}

	svc := web.Services{
		NodeID:    cfg.NodeID,
		Users:     service.NewUsers(a.store, root, cfg.NodeID),
		Branches:  service.NewBranches(a.store, root, cfg.NodeID),
		Clients:   service.NewClients(a.store, root, cfg.NodeID),
		Purchases: service.NewPurchases(a.store, root, cfg.NodeID),
		Sync:      service.NewSync(a.store, root, cfg.NodeID, hq),
		Backups:   service.NewBackups(a.store, root, cfg.NodeID, backupStorage),
	}

	if hq != nil && cfg.SyncInterval > 0 {
		a.syncer = worker.NewSyncer(svc.Sync, cfg.SyncInterval, cfg.HTTPTimeout, root)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	base.Info("init Server")
	a.server = web.New(root, cfg, svc, probes, reg)
	base.Info("build ended")
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("start application...")
	defer func() { _ = a.log.Sync() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Run() }()

	syncDone := make(chan struct{})
	if a.syncer != nil {
		go func() {
			a.syncer.Run(ctx)
			close(syncDone)
		}()
	} else {
		close(syncDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		a.log.Error("server stopped", zap.Error(runErr))
	}
	a.log.Info("stop application...")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	a.server.Close(stopCtx)
	select {
	case <-syncDone:
	case <-stopCtx.Done():
		runErr = errors.Join(runErr, errors.New("syncer did not stop in time"))
	}
	a.closeInfra()

	return runErr
}

func (a *App) closeInfra() {
	if a.store != nil {
		a.store.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
}
