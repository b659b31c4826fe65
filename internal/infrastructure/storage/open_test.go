package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/invoicely-api/internal/infrastructure/storage"
	"github.com/jhoicas/invoicely-api/pkg/config"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

func TestOpen_Memoria(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.StoreDriverMemory}}
	repos, err := storage.Open(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer repos.Close()

	assert.NotNil(t, repos.Users)
	assert.NotNil(t, repos.Clients)
	assert.NotNil(t, repos.Invoices)
	repos.Close()
}

func TestOpen_DriverDesconocido(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "sqlite"}}
	_, err := storage.Open(context.Background(), cfg, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}
