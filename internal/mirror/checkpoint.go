package mirror

import (
	"context"

	"go.uber.org/zap"
)

// restoreCheckpoint seeds the machine's health with the snapshot time
// persisted by an earlier run, so a restart does not report "never".
func (m *Mirror) restoreCheckpoint(ctx context.Context) {
	at, err := m.repo.LastSnapshotAt(ctx)
	if err != nil {
		m.logger.Warn("failed to read sync checkpoint", zap.Error(err))
		return
	}
	if !at.IsZero() && m.machine.Health().LastSnapshot.IsZero() {
		m.machine.RecordSnapshot(at)
	}
}
