package actor

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/berfenger/homie2google/internal/config"
	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/util"
	"github.com/berfenger/homie2google/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnMaster(t *testing.T, cfg config.Config, cloud *cloudRecorder, controller *fakeController) (*actor.ActorSystem, *actor.PID) {
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())
	as := actorutil.NewActorSystemWithZapLogger(logger)

	var homeGraphProvider HomeGraphActorProvider
	if cloud != nil {
		homeGraphProvider = func() actor.Actor { return cloud }
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, homeGraphProvider, func(user config.UserConfig, homeGraph *actor.PID) actor.Actor {
			return NewBridgeActor(user, cfg.Google, controller, homeGraph, logger)
		}, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})
	return as, pid
}

func masterHealth(t *testing.T, as *actor.ActorSystem, pid *actor.PID) domain.ActorHealthResponse {
	res, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	return healthResp
}

func TestMasterActor(t *testing.T) {

	cfg := util.LoadTestConfig()
	as, pid := spawnMaster(t, cfg, &cloudRecorder{}, newFakeController())

	time.Sleep(1 * time.Second)

	healthResp := masterHealth(t, as, pid)
	assert.Equal(t, domain.ACTOR_ID_MASTER, healthResp.Id)
	assert.True(t, healthResp.Healthy, "healthy is true")
	assert.Equal(t, "ok", healthResp.State)
}

func TestMasterActorWithoutCloud(t *testing.T) {

	cfg := util.LoadTestConfig()
	as, pid := spawnMaster(t, cfg, nil, newFakeController())

	assert.Eventually(t, func() bool {
		return masterHealth(t, as, pid).Healthy
	}, 5*time.Second, 50*time.Millisecond)
}

func TestMasterActorReportsUnhealthyBridge(t *testing.T) {

	cfg := util.LoadTestConfig()
	controller := newFakeController()
	refused := &domain.ConnectionError{Err: errors.New("connection refused")}
	controller.connectErrs = []error{refused, refused, refused, refused, refused, refused}
	as, pid := spawnMaster(t, cfg, &cloudRecorder{}, controller)

	healthResp := masterHealth(t, as, pid)
	assert.False(t, healthResp.Healthy)
	assert.Contains(t, healthResp.State, domain.BridgeActorId(util.TEST_USER_ID))
	assert.NotContains(t, healthResp.State, domain.ACTOR_ID_HOMEGRAPH)
}

func TestMasterActorFansOutBridgeRequests(t *testing.T) {

	cfg := util.LoadTestConfig()
	cloud := &cloudRecorder{}
	controller := newFakeController(lampDevice("lamp", domain.StateReady, "true"))
	as, pid := spawnMaster(t, cfg, cloud, controller)

	require.Eventually(t, func() bool {
		return masterHealth(t, as, pid).Healthy
	}, 5*time.Second, 50*time.Millisecond)

	as.Root.Send(pid, domain.BridgeResyncRequest{})
	as.Root.Send(pid, domain.BridgeReportAllRequest{})

	assert.Eventually(t, func() bool {
		return cloud.syncCount() == 1 && cloud.reportCount() == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMasterActorRunsResyncCron(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.Google.ResyncCron = "* * * * * *"
	cloud := &cloudRecorder{}
	controller := newFakeController(lampDevice("lamp", domain.StateReady, "true"))
	as, pid := spawnMaster(t, cfg, cloud, controller)

	assert.Eventually(t, func() bool {
		return cloud.syncCount() >= 1 && cloud.reportCount() >= 1
	}, 5*time.Second, 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		return masterHealth(t, as, pid).Healthy
	}, 5*time.Second, 50*time.Millisecond)

	// bridges answer the cron actor directly
	resync := actor.NewPID(as.Address(), domain.ACTOR_ID_MASTER+"/"+domain.ACTOR_ID_RESYNC)
	reported := regexp.MustCompile(`[1-9]\d* resyncs, [1-9]\d* nodes reported`)
	assert.Eventually(t, func() bool {
		res, err := as.Root.RequestFuture(resync, domain.ActorHealthRequest{}, time.Second).Result()
		return err == nil && reported.MatchString(res.(domain.ActorHealthResponse).State)
	}, 5*time.Second, 50*time.Millisecond)
}
