package tasks

import "context"

// newSessionSweepTask drops expired wizard sessions.
func newSessionSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_sweep")

	return func(ctx context.Context) error {
		if n := deps.Sessions.Sweep(); n > 0 {
			log.InfoContext(ctx, "Expired wizard sessions removed", "count", n, "remaining", deps.Sessions.Len())
		}
		return nil
	}
}
