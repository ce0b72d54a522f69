package fiscal

import (
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/southtrip/caravel/internal/config"
)

// Module wires the fiscal issuance client. Without a base URL the engine
// falls back to the no-op issuer so local runs still complete imports.
var Module = fx.Module("fiscal",
	fx.Provide(NewIssuer),
)

// NewIssuer selects the HTTP client or the no-op fallback.
func NewIssuer(cfg config.Config, log *zap.Logger) Issuer {
	if strings.TrimSpace(cfg.Fiscal.BaseURL) == "" {
		return NewNoopIssuer(log)
	}
	return NewClient(cfg, log)
}
