package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/homie2google/internal/core/domain"
	. "github.com/berfenger/homie2google/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// ResyncActor asks every bridge for a resync and a full state report each
// time the cron expression fires. Resyncs still go through each bridge's
// request sync rate limit.
type ResyncActor struct {
	behavior   actor.Behavior
	expression string
	trigger    *quartz.CronTrigger
	scheduler  *scheduler.TimerScheduler
	cancelTick scheduler.CancelFunc
	nextFire   time.Time
	resyncs    int
	reported   int
	logger     *zap.Logger
}

type resyncTick struct {
}

func NewResyncActor(expression string, logger *zap.Logger) *ResyncActor {
	act := &ResyncActor{
		behavior:   actor.NewBehavior(),
		expression: expression,
		logger:     ActorLogger(domain.ACTOR_ID_RESYNC, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ResyncActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ResyncActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("resync@default started", zap.String("cron", state.expression))
		trigger, err := quartz.NewCronTriggerWithLoc(state.expression, time.Local)
		if err != nil {
			panic(fmt.Errorf("invalid resync cron %q: %w", state.expression, err))
		}
		state.trigger = trigger
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduleNext(ctx)
	case resyncTick:
		state.logger.Info("resync@default firing")
		// bridges answer to this actor, the master only fans out
		replyTo := domain.ActorRequestMixIn{ReplyToRef: (*domain.ActorRef)(ctx.Self())}
		ctx.Send(ctx.Parent(), domain.BridgeResyncRequest{BridgeRequestMixIn: domain.BridgeRequestMixIn{ActorRequestMixIn: replyTo}})
		ctx.Send(ctx.Parent(), domain.BridgeReportAllRequest{BridgeRequestMixIn: domain.BridgeRequestMixIn{ActorRequestMixIn: replyTo}})
		state.scheduleNext(ctx)
	case domain.BridgeResyncResponse:
		state.resyncs++
		state.logger.Debug("resync@default bridge resync requested")
	case domain.BridgeReportAllResponse:
		if msg.HasResponseError() {
			state.logger.Info("resync@default bridge skipped full report", zap.Error(msg.GetResponseError()))
		} else {
			state.reported += msg.Reported
			state.logger.Debug("resync@default bridge reported", zap.Int("nodes", msg.Reported))
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("resync@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_RESYNC,
			Healthy: state.cancelTick != nil,
			State:   fmt.Sprintf("next %s, %d resyncs, %d nodes reported", state.nextFire.Format(time.RFC3339), state.resyncs, state.reported),
		})
	case *actor.Stopping:
		if state.cancelTick != nil {
			state.cancelTick()
		}
	default:
		state.logger.Debug("resync@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ResyncActor) scheduleNext(ctx actor.Context) {
	next, err := state.trigger.NextFireTime(time.Now().UnixNano())
	if err != nil {
		state.logger.Error("resync@default no next fire time", zap.Error(err))
		state.cancelTick = nil
		return
	}
	state.nextFire = time.Unix(0, next)
	state.logger.Debug("resync@default scheduled", zap.Time("at", state.nextFire))
	state.cancelTick = state.scheduler.SendOnce(time.Until(state.nextFire), ctx.Self(), resyncTick{})
}
