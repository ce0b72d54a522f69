package storage

import (
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/southtrip/caravel/internal/config"
)

// BackendLocal is the filesystem backend name accepted in configuration.
const BackendLocal = "local"

// Module wires the batch file store selected by configuration.
var Module = fx.Module("storage",
	fx.Provide(NewStore),
)

// NewStore builds the Store for the configured backend.
func NewStore(cfg config.Config, log *zap.Logger) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch backend {
	case "", BackendLocal:
		return NewLocalStore(cfg.Storage.Dir, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Storage.Backend)
	}
}
