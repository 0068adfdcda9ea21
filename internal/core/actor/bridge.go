package actor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/berfenger/homie2google/internal/config"
	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/core/port"
	"github.com/berfenger/homie2google/internal/core/service"
	. "github.com/berfenger/homie2google/internal/util/actorutil"
	"github.com/berfenger/homie2google/internal/util/ratelimit"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	CONNECT_TIMEOUT   = 10 * time.Second
	SUBSCRIBE_TIMEOUT = 5 * time.Second
)

// BridgeActor runs the event loop of one user: it keeps the Homie connection
// alive, reports fresh node states and requests a cloud resync after
// structural changes.
type BridgeActor struct {
	ActorWithStates
	userId      string
	cfg         config.HomieConfig
	controller  port.HomieController
	homeGraph   *actor.PID
	syncPeriod  time.Duration
	syncTimeout time.Duration
	notifier    *ratelimit.RateLimiter
	scheduler   *scheduler.TimerScheduler
	generation  uint64
	attempts    int

	logger *zap.Logger
}

type bridgeEvent struct {
	event domain.HomieEvent
}

type bridgeError struct {
	err error
}

type bridgeConnected struct {
	generation uint64
	err        error
}

type bridgeSubscribed struct {
	generation uint64
	err        error
}

type bridgeReconnectTick struct {
	generation uint64
}

// NewBridgeActor builds the bridge of one user. homeGraph may be nil, in which
// case nothing is reported to the cloud.
func NewBridgeActor(user config.UserConfig, google config.GoogleConfig, controller port.HomieController, homeGraph *actor.PID, logger *zap.Logger) *BridgeActor {
	act := &BridgeActor{
		userId:      user.Id,
		cfg:         *user.Homie,
		controller:  controller,
		homeGraph:   homeGraph,
		syncPeriod:  google.RequestSyncRateLimit(),
		syncTimeout: google.ReportTimeout(),
		logger:      ActorLogger(domain.BridgeActorId(user.Id), logger),
	}
	act.ActorWithStates = NewActorWithStates(BridgeConnectingState{actor: act})
	return act
}

func (state *BridgeActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Connecting state

type BridgeConnectingState struct {
	ActorState
	actor *BridgeActor
}

func (state BridgeConnectingState) Name() string {
	return "connecting"
}

func (state BridgeConnectingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("bridge@connecting started")
		state.actor.start(ctx)
		state.OnEnter(ctx)
	case bridgeConnected:
		if msg.generation != state.actor.generation {
			state.actor.logger.Debug("bridge@connecting stale connect result", zap.Uint64("generation", msg.generation))
			return
		}
		if msg.err != nil {
			state.actor.logger.Warn("bridge@connecting connect failed", zap.Error(msg.err))
			state.actor.Become(BridgeBackoffState{actor: state.actor}.OnEnter(ctx))
			return
		}
		state.actor.logger.Debug("bridge@connecting connected")
		send := SendFromOutside(ctx)
		generation := state.actor.generation
		state.actor.controller.Subscribe(func(err error) {
			send(bridgeSubscribed{generation: generation, err: err})
		}, SUBSCRIBE_TIMEOUT)
	case bridgeSubscribed:
		if msg.generation != state.actor.generation {
			state.actor.logger.Debug("bridge@connecting stale subscribe result", zap.Uint64("generation", msg.generation))
			return
		}
		if msg.err != nil {
			state.actor.logger.Warn("bridge@connecting subscribe failed", zap.Error(msg.err))
			state.actor.controller.Disconnect()
			state.actor.Become(BridgeBackoffState{actor: state.actor}.OnEnter(ctx))
			return
		}
		state.actor.logger.Info("bridge@connecting polling", zap.String("prefix", state.actor.controller.BaseTopic()))
		state.actor.attempts = 0
		state.actor.Become(BridgePollingState{actor: state.actor})
	case bridgeError:
		if domain.IsConnectionError(msg.err) {
			// the pending connect or subscribe result drives the transition
			state.actor.logger.Debug("bridge@connecting connection error", zap.Error(msg.err))
			return
		}
		state.actor.receiveCommon(ctx)
	default:
		state.actor.receiveCommon(ctx)
	}
}

func (state BridgeConnectingState) OnEnter(ctx actor.Context) BridgeConnectingState {
	state.actor.generation++
	state.actor.attempts++
	generation := state.actor.generation
	state.actor.logger.Debug("bridge@connecting connect", zap.Uint64("generation", generation), zap.Int("attempt", state.actor.attempts))
	send := SendFromOutside(ctx)
	state.actor.controller.Connect(func(err error) {
		send(bridgeConnected{generation: generation, err: err})
	}, CONNECT_TIMEOUT)
	return state
}

// Polling state

type BridgePollingState struct {
	ActorState
	actor *BridgeActor
}

func (state BridgePollingState) Name() string {
	return "polling"
}

func (state BridgePollingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case bridgeError:
		if domain.IsConnectionError(msg.err) {
			state.actor.logger.Warn("bridge@polling connection lost", zap.Error(msg.err))
			state.actor.controller.Disconnect()
			state.actor.Become(BridgeBackoffState{actor: state.actor}.OnEnter(ctx))
			return
		}
		state.actor.receiveCommon(ctx)
	case domain.BridgeReportAllRequest:
		n := state.actor.reportAll(ctx)
		state.actor.logger.Debug("bridge@polling BridgeReportAllRequest", zap.Int("reported", n))
		ForRequest(msg).Respond(ctx, domain.BridgeReportAllResponse{Reported: n})
	default:
		state.actor.receiveCommon(ctx)
	}
}

// Backoff state

type BridgeBackoffState struct {
	ActorState
	actor *BridgeActor
}

func (state BridgeBackoffState) Name() string {
	return "backoff"
}

func (state BridgeBackoffState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case bridgeReconnectTick:
		if msg.generation != state.actor.generation {
			return
		}
		state.actor.Become(BridgeConnectingState{actor: state.actor}.OnEnter(ctx))
	case bridgeError:
		if domain.IsConnectionError(msg.err) {
			state.actor.logger.Debug("bridge@backoff connection error", zap.Error(msg.err))
			return
		}
		state.actor.receiveCommon(ctx)
	default:
		state.actor.receiveCommon(ctx)
	}
}

func (state BridgeBackoffState) OnEnter(ctx actor.Context) BridgeBackoffState {
	interval := state.actor.cfg.ReconnectInterval()
	state.actor.logger.Info("bridge@backoff reconnecting later", zap.Duration("interval", interval))
	state.actor.scheduler.RequestOnce(interval, ctx.Self(), bridgeReconnectTick{generation: state.actor.generation})
	return state
}

// messages handled the same way in every state
func (state *BridgeActor) receiveCommon(ctx actor.Context) {
	stateName := state.StateName()
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("bridge@" + stateName + " ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.BridgeActorId(state.userId),
			Healthy: stateName == "polling",
			State:   stateName,
		})
	case bridgeEvent:
		state.handleEvent(ctx, msg.event)
	case bridgeError:
		var protoErr *domain.ProtocolError
		if errors.As(msg.err, &protoErr) {
			state.logger.Warn("bridge@"+stateName+" protocol error", zap.String("topic", protoErr.Topic), zap.Error(protoErr.Err))
		} else {
			state.logger.Error("bridge@"+stateName+" error", zap.Error(msg.err))
		}
	case domain.BridgeResyncRequest:
		state.logger.Debug("bridge@" + stateName + " BridgeResyncRequest")
		state.notifier.Execute()
		ForRequest(msg).Respond(ctx, domain.BridgeResyncResponse{})
	case domain.BridgeReportAllRequest:
		ForRequest(msg).Respond(ctx, domain.BridgeReportAllResponse{
			BridgeResponseMixIn: domain.BridgeResponseMixIn{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: domain.ErrNotConnected},
			},
		})
	default:
		state.logger.Debug("bridge@"+stateName+" recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *BridgeActor) start(ctx actor.Context) {
	state.scheduler = scheduler.NewTimerScheduler(ctx)
	state.notifier = ratelimit.New(state.syncPeriod, state.requestSync(ctx.ActorSystem().Root))
	send := SendFromOutside(ctx)
	state.controller.OnEvent(func(e domain.HomieEvent) {
		send(bridgeEvent{event: e})
	})
	state.controller.OnError(func(err error) {
		send(bridgeError{err: err})
	})
}

func (state *BridgeActor) stop() {
	state.logger.Debug("bridge stopping")
	state.generation++
	state.controller.OnEvent(nil)
	state.controller.OnError(nil)
	if state.notifier != nil {
		state.notifier.Close()
	}
	state.controller.Disconnect()
}

func (state *BridgeActor) handleEvent(ctx actor.Context, event domain.HomieEvent) {
	switch e := event.(type) {
	case domain.PropertyValueChanged:
		if !e.Fresh {
			state.logger.Debug("bridge value echo", zap.String("device", e.DeviceId), zap.String("node", e.NodeId), zap.String("property", e.PropertyId))
			return
		}
		state.reportNode(ctx, e.DeviceId, e.NodeId)
	default:
		if domain.Structural(event) {
			state.logger.Debug("bridge structural change", zap.String("event", fmt.Sprintf("%T", event)), zap.String("device", event.Device()))
			state.notifier.Execute()
			return
		}
		state.logger.Debug("bridge event", zap.String("event", fmt.Sprintf("%T", event)), zap.String("device", event.Device()))
	}
}

// reportNode sends the current state of a node to the cloud. It reports
// whether a state was sent.
func (state *BridgeActor) reportNode(ctx actor.Context, deviceId, nodeId string) bool {
	device, node, ok := state.controller.Node(deviceId, nodeId)
	if !ok {
		return false
	}
	payload, ok := service.NodeState(device, node)
	if !ok {
		state.logger.Debug("bridge node without reportable state", zap.String("node", domain.NodeAddress(deviceId, nodeId)))
		return false
	}
	if state.homeGraph == nil {
		state.logger.Debug("bridge cloud disabled, skipping report", zap.String("node", domain.NodeAddress(deviceId, nodeId)))
		return false
	}
	ctx.Send(state.homeGraph, domain.ReportStateRequest{
		UserId: state.userId,
		NodeId: domain.NodeAddress(deviceId, nodeId),
		State:  payload,
	})
	return true
}

func (state *BridgeActor) reportAll(ctx actor.Context) int {
	devices := state.controller.Devices()
	ids := make([]string, 0, len(devices))
	for id := range devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	n := 0
	for _, id := range ids {
		device := devices[id]
		if !device.HasRequiredAttributes() || !device.Reachable() {
			continue
		}
		for _, nodeId := range device.NodeIds {
			if _, ok := device.Nodes[nodeId]; ok && state.reportNode(ctx, id, nodeId) {
				n++
			}
		}
	}
	return n
}

// requestSync is the notifier action. It waits for the cloud call so the rate
// limit period starts once the request completed.
func (state *BridgeActor) requestSync(root *actor.RootContext) func(context.Context) {
	return func(_ context.Context) {
		if state.homeGraph == nil {
			state.logger.Debug("bridge cloud disabled, skipping sync request")
			return
		}
		state.logger.Info("bridge requesting sync")
		res, err := root.RequestFuture(state.homeGraph, domain.RequestSyncRequest{UserId: state.userId}, state.syncTimeout+time.Second).Result()
		if err != nil {
			state.logger.Error("bridge sync request failed", zap.Error(err))
			return
		}
		if resp, ok := res.(domain.RequestSyncResponse); ok && resp.HasResponseError() {
			state.logger.Error("bridge sync request failed", zap.Error(resp.GetResponseError()))
		}
	}
}
