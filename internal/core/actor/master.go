package actor

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/berfenger/homie2google/internal/config"
	"github.com/berfenger/homie2google/internal/core/domain"
	. "github.com/berfenger/homie2google/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	CHILD_HEALTH_TIMEOUT = 500 * time.Millisecond
	HEALTH_CHECK_TIMEOUT = 1 * time.Second
)

// HomeGraphActorProvider builds the cloud actor. A nil provider disables cloud
// reporting.
type HomeGraphActorProvider func() actor.Actor

// BridgeActorProvider builds the bridge of one user. homeGraph is nil when
// cloud reporting is disabled.
type BridgeActorProvider func(user config.UserConfig, homeGraph *actor.PID) actor.Actor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck     healthCheckResult
	homeGraphActor         *actor.PID
	bridgeActors           []*actor.PID
	resyncActor            *actor.PID
	homeGraphActorProvider HomeGraphActorProvider
	bridgeActorProvider    BridgeActorProvider
	logger                 *zap.Logger
}

type healthCheckResult struct {
	pending   map[string]bool
	unhealthy []string
	respondTo *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, homeGraphActorProvider HomeGraphActorProvider, bridgeActorProvider BridgeActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:                 config,
		behavior:               actor.NewBehavior(),
		stash:                  &Stash{},
		logger:                 ActorLogger(domain.ACTOR_ID_MASTER, logger),
		homeGraphActorProvider: homeGraphActorProvider,
		bridgeActorProvider:    bridgeActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}

		// start HomeGraph child
		if state.homeGraphActorProvider != nil {
			homeGraphActorPID, err := state.startHomeGraphActor(ctx)
			if err != nil {
				panic(err)
			}
			state.homeGraphActor = homeGraphActorPID
		} else {
			state.logger.Warn("master@starting cloud reporting disabled")
		}

		// start one bridge per user
		for _, user := range state.config.Users {
			if user.Homie == nil {
				state.logger.Info("master@starting user without homie connection", zap.String("user", user.Id))
				continue
			}
			bridgeActorPID, err := state.startBridgeActor(ctx, user)
			if err != nil {
				panic(err)
			}
			state.bridgeActors = append(state.bridgeActors, bridgeActorPID)
		}

		// start periodic resync
		if state.config.Google.ResyncCron != "" {
			resyncActorPID, err := state.startResyncActor(ctx)
			if err != nil {
				panic(err)
			}
			state.resyncActor = resyncActorPID
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		children := state.children()
		state.currentHealthCheck.reset(children)
		state.currentHealthCheck.respondTo = ctx.Sender()
		if len(children) == 0 {
			state.currentHealthCheck.respond(ctx)
			return
		}
		for id, pid := range children {
			id := id
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, CHILD_HEALTH_TIMEOUT), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(HEALTH_CHECK_TIMEOUT)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.BridgeRequest:
		// fan out bridge commands to every user
		state.logger.Debug("master@default BridgeRequest", zap.String("command", fmt.Sprintf("%T", msg)), zap.Int("bridges", len(state.bridgeActors)))
		for _, pid := range state.bridgeActors {
			ctx.Send(pid, msg)
		}
	case *actor.Terminated:
		state.logger.Warn("master@default child terminated", zap.String("who", msg.Who.Id))
	default:
		state.logger.Debug("master@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// children that did not answer in time count as unhealthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy), zap.String("state", msg.State))
		state.currentHealthCheck.received(msg)
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(HEALTH_CHECK_TIMEOUT)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) children() map[string]*actor.PID {
	children := map[string]*actor.PID{}
	if state.homeGraphActor != nil {
		children[domain.ACTOR_ID_HOMEGRAPH] = state.homeGraphActor
	}
	for _, pid := range state.bridgeActors {
		children[strings.TrimPrefix(pid.Id, domain.ACTOR_ID_MASTER+"/")] = pid
	}
	if state.resyncActor != nil {
		children[domain.ACTOR_ID_RESYNC] = state.resyncActor
	}
	return children
}

func (state *MasterOfPuppetsActor) startHomeGraphActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(10, 10*time.Second, decider)

	homeGraphProps := actor.PropsFromProducer(func() actor.Actor {
		return state.homeGraphActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(homeGraphProps, domain.ACTOR_ID_HOMEGRAPH)
}

func (state *MasterOfPuppetsActor) startBridgeActor(ctx actor.Context, user config.UserConfig) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	homeGraph := state.homeGraphActor
	bridgeProps := actor.PropsFromProducer(func() actor.Actor {
		return state.bridgeActorProvider(user, homeGraph)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(bridgeProps, domain.BridgeActorId(user.Id))
}

func (state *MasterOfPuppetsActor) startResyncActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.StopDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	resyncProps := actor.PropsFromProducer(func() actor.Actor {
		return NewResyncActor(state.config.Google.ResyncCron, state.logger)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(resyncProps, domain.ACTOR_ID_RESYNC)
}

func (state *healthCheckResult) reset(children map[string]*actor.PID) {
	state.pending = make(map[string]bool, len(children))
	for id := range children {
		state.pending[id] = true
	}
	state.unhealthy = nil
}

func (state *healthCheckResult) received(resp domain.ActorHealthResponse) {
	if !state.pending[resp.Id] {
		// late answer of a previous check
		return
	}
	delete(state.pending, resp.Id)
	if !resp.Healthy {
		state.unhealthy = append(state.unhealthy, resp.Id)
	}
}

func (state *healthCheckResult) allReceived() bool {
	return len(state.pending) == 0
}

func (state *healthCheckResult) allHealthy() bool {
	return len(state.unhealthy) == 0 && state.allReceived()
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
		State:   "ok",
	}
	if !resp.Healthy {
		failed := append([]string{}, state.unhealthy...)
		for id := range state.pending {
			failed = append(failed, id)
		}
		sort.Strings(failed)
		resp.State = "unhealthy: " + strings.Join(failed, ",")
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
