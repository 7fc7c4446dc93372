package app

import (
	"context"
	"fmt"
	"log/slog"
)

// WarmMode bulk-loads the full execution state for the trader, then runs the
// residuals check. It is what an engine restart does before resuming trading.
func (a *App) WarmMode(ctx context.Context, deps *Dependencies) error {
	db := deps.Database

	accounts, err := db.LoadAccounts(ctx)
	if err != nil {
		return fmt.Errorf("app: warm: load accounts: %w", err)
	}
	orders, err := db.LoadOrders(ctx)
	if err != nil {
		return fmt.Errorf("app: warm: load orders: %w", err)
	}
	positions, err := db.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("app: warm: load positions: %w", err)
	}

	a.logger.InfoContext(ctx, "state warmed",
		slog.Int("accounts", len(accounts)),
		slog.Int("orders", len(orders)),
		slog.Int("positions", len(positions)),
	)

	return a.reportResiduals(ctx, deps)
}

// ResidualsMode runs only the consistency check and logs the findings.
func (a *App) ResidualsMode(ctx context.Context, deps *Dependencies) error {
	return a.reportResiduals(ctx, deps)
}

func (a *App) reportResiduals(ctx context.Context, deps *Dependencies) error {
	res := deps.Database.CheckResiduals(ctx)
	if res.Empty() {
		a.logger.InfoContext(ctx, "no residual state found")
		return nil
	}

	a.logger.WarnContext(ctx, "residual state found",
		slog.Int("working_orders", len(res.WorkingOrders)),
		slog.Int("open_positions", len(res.OpenPositions)),
		slog.Int("index_gaps", len(res.IndexGaps)),
	)
	for _, id := range res.WorkingOrders {
		a.logger.WarnContext(ctx, "residual working order", slog.String("client_order_id", string(id)))
	}
	for _, id := range res.OpenPositions {
		a.logger.WarnContext(ctx, "residual open position", slog.String("position_id", string(id)))
	}
	for _, gap := range res.IndexGaps {
		a.logger.WarnContext(ctx, "index gap", slog.String("detail", gap))
	}
	return nil
}

// StrategiesMode lists every registered strategy in the trader's namespace.
func (a *App) StrategiesMode(ctx context.Context, deps *Dependencies) error {
	ids, err := deps.Database.StrategyIDs(ctx)
	if err != nil {
		return fmt.Errorf("app: strategies: %w", err)
	}

	a.logger.InfoContext(ctx, "registered strategies", slog.Int("count", len(ids)))
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// FlushMode deletes every key under the trader's namespace.
func (a *App) FlushMode(ctx context.Context, deps *Dependencies) error {
	if err := deps.Database.Flush(ctx); err != nil {
		return fmt.Errorf("app: flush: %w", err)
	}
	a.logger.InfoContext(ctx, "namespace flushed", slog.String("trader", string(deps.TraderID)))
	return nil
}
