package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/zenshin-chart/pkg/queue"
)

// Task type names
const (
	TypePurgeExpiredInvitations = "invite:purge_expired"
	TypeChartExport             = "chart:export"
)

// Enqueuer is the part of asynq.Client the API needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// The purge task has no payload; retention comes from worker config.
func NewPurgeExpiredInvitationsTask() *asynq.Task {
	return asynq.NewTask(TypePurgeExpiredInvitations, nil, asynq.Queue(queue.QueueLow), asynq.MaxRetry(3))
}

// ChartExportPayload contains the data for a chart export task
type ChartExportPayload struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	ChartID     uuid.UUID `json:"chart_id"`
	RequestedBy uuid.UUID `json:"requested_by"`
}

func NewChartExportTask(payload ChartExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeChartExport, data,
		asynq.Queue(queue.QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(2*time.Minute),
	), nil
}
