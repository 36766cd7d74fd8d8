package api

import (
	"net/http"
	"testing"

	"github.com/alumnet/server/internal/config"
	"github.com/alumnet/server/internal/database"
	"github.com/alumnet/server/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewApp(t *testing.T) {
	mux := http.NewServeMux()
	logger := testutil.TestLogger(t)
	db := &database.MockMessagingRepository{}
	cfg := &config.Config{
		ServerAddr:     "localhost:8080",
		DatabaseDSN:    "dsn",
		SigningKey:     []byte("secret"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	app := NewApp(mux, logger, nil, db, nil, cfg)

	assert.NotNil(t, app, "expected app to be initialized")
	assert.NotNil(t, app.mux, "expected mux to be initialized")
	assert.NotNil(t, app.tokens, "expected token manager to be initialized")
	assert.Equal(t, app.log, logger, "expected logger to be set")
	assert.Equal(t, app.db, db, "expected db to be set")
	assert.Equal(t, app.allowedOrigins, cfg.AllowedOrigins, "expected allowed origins to match config")
	assert.Equal(t, app.mux.Addr, cfg.ServerAddr, "expected server address to match config")
}
