package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/config"
	"github.com/cory-johannsen/construct/internal/gameserver"
)

func testConfig() *config.Config {
	return &config.Config{
		Logging: config.LoggingConfig{Level: "info", Format: "console"},
		GRPC:    config.GRPCConfig{Host: "127.0.0.1", Port: 0},
		Chain: config.ChainConfig{
			BlockInterval: time.Second,
			StartHeight:   1,
			RandomSeed:    "test",
			FirstTokenID:  10000,
		},
		Genesis: config.GenesisConfig{Path: filepath.Join("..", "..", "configs", "genesis.yaml")},
		Storage: config.StorageConfig{Backend: "memory", SnapshotEvery: 10},
	}
}

func TestInitializeApp_MemoryBackend(t *testing.T) {
	app, cleanup, err := initializeApp(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, app.producer)
	require.NotNil(t, app.grpc)
	assert.Equal(t, int64(0), app.producer.Height())

	rep, err := app.producer.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rep.Height)
}

func TestInitializeApp_MissingGenesis(t *testing.T) {
	cfg := testConfig()
	cfg.Genesis.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, _, err := initializeApp(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestProvideStore_Memory(t *testing.T) {
	store, cleanup, err := provideStore(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &gameserver.MemoryStore{}, store)
}
