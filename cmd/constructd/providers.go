package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/chain"
	"github.com/cory-johannsen/construct/internal/config"
	"github.com/cory-johannsen/construct/internal/game/construct"
	"github.com/cory-johannsen/construct/internal/game/dice"
	"github.com/cory-johannsen/construct/internal/gameserver"
	"github.com/cory-johannsen/construct/internal/server"
	"github.com/cory-johannsen/construct/internal/storage/postgres"
)

// providerSet lists every constructor initializeApp is built from.
var providerSet = wire.NewSet(
	provideGenesis,
	provideLedger,
	chain.NewOutbox,
	provideRandom,
	provideRuntime,
	provideDriver,
	provideMempool,
	provideStore,
	provideBlockProducer,
	provideService,
	provideGRPCServer,
	newApp,
)

// App is the assembled daemon.
type App struct {
	logger   *zap.Logger
	producer *gameserver.BlockProducer
	grpc     *gameserver.GRPCServer
}

func newApp(logger *zap.Logger, producer *gameserver.BlockProducer, grpc *gameserver.GRPCServer) *App {
	return &App{logger: logger, producer: producer, grpc: grpc}
}

// Run starts the block producer and the gRPC server and blocks until a
// signal or the first service failure.
func (a *App) Run(ctx context.Context) error {
	lifecycle := server.NewLifecycle(a.logger)
	lifecycle.Add("block-producer", a.producer)
	lifecycle.Add("grpc", a.grpc)
	return lifecycle.Run(ctx)
}

func provideGenesis(cfg *config.Config, logger *zap.Logger) (construct.Genesis, error) {
	g, err := construct.LoadGenesis(cfg.Genesis.Path)
	if err != nil {
		return construct.Genesis{}, err
	}
	if err := g.Validate(); err != nil {
		return construct.Genesis{}, err
	}
	logger.Info("genesis loaded",
		zap.String("path", cfg.Genesis.Path),
		zap.String("name", g.Name),
		zap.Stringer("contract", g.Contract),
		zap.Int("accounts", len(g.Accounts)),
	)
	return g, nil
}

func provideLedger(cfg *config.Config, g construct.Genesis) *chain.MemLedger {
	l := chain.NewMemLedger(chain.TokenID(cfg.Chain.FirstTokenID))
	g.Seed(l)
	return l
}

func provideRandom(cfg *config.Config, logger *zap.Logger) dice.Source {
	return dice.NewLoggedSource(dice.NewWeakSource([]byte(cfg.Chain.RandomSeed)), logger)
}

func provideRuntime(ledger *chain.MemLedger, outbox *chain.Outbox, src dice.Source, logger *zap.Logger) construct.Runtime {
	return construct.Runtime{
		Ledger:  ledger,
		Notices: outbox,
		Events:  outbox,
		Rand:    src,
		Logger:  logger,
	}
}

func provideDriver(rt construct.Runtime, g construct.Genesis) (*construct.Driver, error) {
	c, err := construct.Deploy(rt, g)
	if err != nil {
		return nil, fmt.Errorf("deploying construct: %w", err)
	}
	return construct.NewDriver(c, rt), nil
}

func provideMempool(ledger *chain.MemLedger, g construct.Genesis) *chain.Mempool {
	return chain.NewMempool(ledger, g.Contract)
}

// provideStore connects the configured backend. The cleanup closes the pool.
func provideStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (gameserver.Store, func(), error) {
	if cfg.Storage.Backend != "postgres" {
		logger.Info("using in-memory store")
		return gameserver.NewMemoryStore(), func() {}, nil
	}
	start := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(start)),
	)
	return postgres.NewStore(pool), pool.Close, nil
}

func provideBlockProducer(
	cfg *config.Config,
	g construct.Genesis,
	driver *construct.Driver,
	pool *chain.Mempool,
	outbox *chain.Outbox,
	store gameserver.Store,
	logger *zap.Logger,
) *gameserver.BlockProducer {
	return gameserver.NewBlockProducer(
		gameserver.BlockProducerConfig{
			Contract:      g.Contract,
			Interval:      cfg.Chain.BlockInterval,
			StartHeight:   cfg.Chain.StartHeight,
			SnapshotEvery: cfg.Storage.SnapshotEvery,
		},
		driver, pool, outbox, store, logger,
	)
}

func provideService(
	driver *construct.Driver,
	pool *chain.Mempool,
	producer *gameserver.BlockProducer,
	store gameserver.Store,
	logger *zap.Logger,
) *gameserver.ConstructService {
	return gameserver.NewConstructService(driver, pool, producer, store, logger)
}

func provideGRPCServer(cfg *config.Config, svc *gameserver.ConstructService, logger *zap.Logger) *gameserver.GRPCServer {
	return gameserver.NewGRPCServer(cfg.GRPC.Addr(), svc, logger)
}
