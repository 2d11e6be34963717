package port

import (
	"context"

	"media-service/ddd/domain/vo"
)

// ProgressSink persists or forwards progress updates for an item's active job.
// Implementations are expected to throttle writes.
type ProgressSink interface {
	SaveProgress(ctx context.Context, itemUUID string, kind vo.JobKind, percent int) error
	SaveHeartbeat(ctx context.Context, itemUUID string) error
	// Flush forces the last buffered value out, called at job end.
	Flush(ctx context.Context, itemUUID string) error
}
