// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	todostore "github.com/dalemusser/todohub/internal/app/store/todos"
	"github.com/dalemusser/todohub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// todohub repairs todos written by older clients (string dates, markup or
// control characters in names) so the typed store can decode every document.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if !appCfg.RepairTodos {
		return nil
	}

	repairCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	st, err := todostore.New(deps.MongoDatabase).RepairLegacy(repairCtx)
	if err != nil {
		// Startup continues; unrepaired documents only affect their owners.
		logger.Warn("legacy todo repair failed", zap.Error(err))
		return nil
	}
	if st.DatesConverted > 0 || st.TextCleaned > 0 {
		logger.Info("repaired legacy todos",
			zap.Int64("dates_converted", st.DatesConverted),
			zap.Int64("text_cleaned", st.TextCleaned))
	}
	return nil
}
