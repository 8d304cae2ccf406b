package endpoint

import (
	"log/slog"
	"time"

	"nebula/internal/auth"
	"nebula/internal/platform/config"
	"nebula/internal/platform/database"
	"nebula/internal/platform/messaging"
	"nebula/internal/scopes"
)

// Env is handed to every unit constructor.
type Env struct {
	DB        database.DB
	Logger    *slog.Logger
	Auth      *auth.Service
	Scopes    *scopes.Registry
	Publisher messaging.Publisher
	Config    config.Server
	Version   string
	Started   time.Time
}
