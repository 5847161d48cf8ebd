package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask compacts the archive file.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		start := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		groups, err := deps.Store.GetAllGroups(ctx)
		if err != nil {
			return fmt.Errorf("sql maintenance: list groups: %w", err)
		}
		log.InfoContext(ctx, "Archive compacted", "groups", len(groups), "duration", time.Since(start))
		return nil
	}
}
