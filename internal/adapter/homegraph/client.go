package homegraph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/berfenger/homie2google/internal/config"
	"github.com/berfenger/homie2google/internal/core/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/homegraph/v1"
	"google.golang.org/api/option"
)

// Client talks to the Google HomeGraph API on behalf of the configured
// service account.
type Client struct {
	service *homegraph.Service
	logger  *zap.Logger
}

func NewClient(ctx context.Context, cfg config.GoogleConfig, logger *zap.Logger) (*Client, error) {
	return NewClientWithOptions(ctx, logger,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(homegraph.HomegraphScope),
	)
}

func NewClientWithOptions(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	service, err := homegraph.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating homegraph service: %w", err)
	}
	return &Client{service: service, logger: logger}, nil
}

// ReportState pushes the state of one node.
func (c *Client) ReportState(ctx context.Context, userId, nodeId string, state map[string]any) error {
	states, err := json.Marshal(map[string]any{nodeId: state})
	if err != nil {
		return fmt.Errorf("encoding state of %s: %w", nodeId, err)
	}
	req := &homegraph.ReportStateAndNotificationRequest{
		AgentUserId: userId,
		RequestId:   uuid.NewString(),
		Payload: &homegraph.StateAndNotificationPayload{
			Devices: &homegraph.ReportStateAndNotificationDevice{
				States: googleapi.RawMessage(states),
			},
		},
	}
	res, err := c.service.Devices.ReportStateAndNotification(req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reporting state of %s: %w", nodeId, err)
	}
	c.logger.Debug("state reported", zap.String("user", userId), zap.String("node", nodeId),
		zap.String("request_id", res.RequestId))
	return nil
}

// RequestSync asks Google to issue a SYNC intent for the user.
func (c *Client) RequestSync(ctx context.Context, userId string) error {
	req := &homegraph.RequestSyncDevicesRequest{
		AgentUserId: userId,
		Async:       true,
	}
	if _, err := c.service.Devices.RequestSync(req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("requesting sync for %s: %w", userId, err)
	}
	c.logger.Debug("sync requested", zap.String("user", userId))
	return nil
}

// ensure interface compliance
var _ port.HomeGraph = (*Client)(nil)
