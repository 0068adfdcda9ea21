package port

import "context"

// HomeGraph is the cloud side reporting API.
type HomeGraph interface {
	ReportState(ctx context.Context, userId, nodeId string, state map[string]any) error
	RequestSync(ctx context.Context, userId string) error
}
