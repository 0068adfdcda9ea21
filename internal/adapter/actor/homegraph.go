package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/core/port"
	"github.com/berfenger/homie2google/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HomeGraphActor serializes every cloud call of the process. Calls run one at
// a time so reports of the same node reach the cloud in order.
type HomeGraphActor struct {
	behavior actor.Behavior
	client   port.HomeGraph
	timeout  time.Duration
	logger   *zap.Logger
}

func NewHomeGraphActor(client port.HomeGraph, timeout time.Duration, logger *zap.Logger) *HomeGraphActor {
	act := &HomeGraphActor{
		behavior: actor.NewBehavior(),
		client:   client,
		timeout:  timeout,
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_HOMEGRAPH, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *HomeGraphActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HomeGraphActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("homegraph@default started")
	case domain.ActorHealthRequest:
		state.logger.Debug("homegraph@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HOMEGRAPH,
			Healthy: true,
			State:   "idle",
		})
	case domain.ReportStateRequest:
		state.logger.Debug("homegraph@default ReportStateRequest", zap.String("user", msg.UserId), zap.String("node", msg.NodeId))
		actorutil.NewContextTask(state.timeout, func(c context.Context) error {
			return state.client.ReportState(c, msg.UserId, msg.NodeId, msg.State)
		}).OnError(func(err error) {
			state.logger.Error("homegraph@default report state failed", zap.String("user", msg.UserId),
				zap.String("node", msg.NodeId), zap.Any("state", msg.State), zap.Error(err))
			actorutil.ForRequest(msg).Respond(ctx, domain.ReportStateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
		}).OnSuccess(func(struct{}) {
			actorutil.ForRequest(msg).Respond(ctx, domain.ReportStateResponse{})
		}).Run()
	case domain.RequestSyncRequest:
		state.logger.Debug("homegraph@default RequestSyncRequest", zap.String("user", msg.UserId))
		actorutil.NewContextTask(state.timeout, func(c context.Context) error {
			return state.client.RequestSync(c, msg.UserId)
		}).OnError(func(err error) {
			state.logger.Error("homegraph@default request sync failed", zap.String("user", msg.UserId), zap.Error(err))
			actorutil.ForRequest(msg).Respond(ctx, domain.RequestSyncResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
		}).OnSuccess(func(struct{}) {
			actorutil.ForRequest(msg).Respond(ctx, domain.RequestSyncResponse{})
		}).Run()
	default:
		state.logger.Debug("homegraph@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
