package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reportCall struct {
	userId string
	nodeId string
	state  map[string]any
}

type fakeHomeGraph struct {
	mu      sync.Mutex
	reports []reportCall
	syncs   []string
	err     error
	delay   time.Duration
}

func (f *fakeHomeGraph) ReportState(ctx context.Context, userId, nodeId string, state map[string]any) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, reportCall{userId: userId, nodeId: nodeId, state: state})
	return f.err
}

func (f *fakeHomeGraph) RequestSync(_ context.Context, userId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, userId)
	return f.err
}

func (f *fakeHomeGraph) reportedNodes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	nodes := make([]string, len(f.reports))
	for i, r := range f.reports {
		nodes[i] = r.nodeId
	}
	return nodes
}

func spawnHomeGraph(t *testing.T, hg *fakeHomeGraph, timeout time.Duration) (*actor.ActorSystem, *actor.PID) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHomeGraphActor(hg, timeout, logger)
	}))
	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})
	return as, pid
}

func TestHomeGraphActorHealth(t *testing.T) {
	as, pid := spawnHomeGraph(t, &fakeHomeGraph{}, time.Second)

	res, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.True(t, resp.Healthy)
	assert.Equal(t, domain.ACTOR_ID_HOMEGRAPH, resp.Id)
}

func TestHomeGraphActorReportState(t *testing.T) {
	hg := &fakeHomeGraph{}
	as, pid := spawnHomeGraph(t, hg, time.Second)

	state := map[string]any{"online": true, "on": true}
	res, err := as.Root.RequestFuture(pid, domain.ReportStateRequest{UserId: "u1", NodeId: "lamp/light", State: state}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.ReportStateResponse)
	require.True(t, ok)
	assert.False(t, resp.HasResponseError())

	require.Len(t, hg.reports, 1)
	assert.Equal(t, reportCall{userId: "u1", nodeId: "lamp/light", state: state}, hg.reports[0])
}

func TestHomeGraphActorKeepsReportOrder(t *testing.T) {
	hg := &fakeHomeGraph{delay: 10 * time.Millisecond}
	as, pid := spawnHomeGraph(t, hg, time.Second)

	nodes := []string{"a/n", "b/n", "c/n", "d/n"}
	for _, n := range nodes {
		as.Root.Send(pid, domain.ReportStateRequest{UserId: "u1", NodeId: n, State: map[string]any{"online": true}})
	}

	assert.Eventually(t, func() bool {
		return len(hg.reportedNodes()) == len(nodes)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, nodes, hg.reportedNodes())
}

func TestHomeGraphActorReportsErrors(t *testing.T) {
	hg := &fakeHomeGraph{err: errors.New("quota exceeded")}
	as, pid := spawnHomeGraph(t, hg, time.Second)

	res, err := as.Root.RequestFuture(pid, domain.RequestSyncRequest{UserId: "u1"}, time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.RequestSyncResponse)
	require.True(t, ok)
	assert.ErrorContains(t, resp.GetResponseError(), "quota exceeded")

	// the actor keeps serving after a failure
	res, err = as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.True(t, res.(domain.ActorHealthResponse).Healthy)
}

func TestHomeGraphActorTimesOutSlowCalls(t *testing.T) {
	hg := &fakeHomeGraph{delay: time.Second}
	as, pid := spawnHomeGraph(t, hg, 50*time.Millisecond)

	res, err := as.Root.RequestFuture(pid, domain.ReportStateRequest{UserId: "u1", NodeId: "a/n"}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.ReportStateResponse)
	require.True(t, ok)
	assert.True(t, resp.HasResponseError())
	assert.Empty(t, hg.reportedNodes())
}
