package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/core/port"
	"github.com/berfenger/homie2google/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type setCall struct {
	deviceId, nodeId, propertyId, value string
}

type fakeHome struct {
	mu      sync.Mutex
	devices domain.Devices
	sets    []setCall
}

func (h *fakeHome) Devices() domain.Devices {
	return h.devices
}

func (h *fakeHome) Node(deviceId, nodeId string) (domain.Device, domain.Node, bool) {
	return h.devices.Lookup(domain.NodeAddress(deviceId, nodeId))
}

func (h *fakeHome) Set(_ context.Context, deviceId, nodeId, propertyId, value string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sets = append(h.sets, setCall{deviceId, nodeId, propertyId, value})
	return nil
}

func strValue(v string) *string {
	return &v
}

func testHome() *fakeHome {
	return &fakeHome{devices: domain.Devices{
		"lamp": {
			Id: "lamp", Name: "Lamp", Homie: "4.0", State: domain.StateReady,
			NodeIds: []string{"light"},
			Nodes: map[string]domain.Node{
				"light": {
					Id: "light", Name: "Light", PropertyIds: []string{"on"},
					Properties: map[string]domain.Property{
						"on": {Id: "on", Name: "On", Datatype: domain.DatatypeBoolean, Settable: true, Retained: true, Value: strValue("true")},
					},
				},
			},
		},
	}}
}

func testServer(t *testing.T, healthy bool) (*Server, *fakeHome) {
	cfg := util.LoadTestConfig()
	as := actor.NewActorSystem()
	master := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if _, ok := ctx.Message().(domain.ActorHealthRequest); ok {
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: healthy, State: "unhealthy: bridge-x"})
		}
	}))
	t.Cleanup(as.Shutdown)

	home := testHome()
	s := newServer(cfg, as.Root, master, map[string]port.Home{util.TEST_USER_ID: home}, zap.NewNop())
	return s, home
}

func token(t *testing.T, key, subject string, expiresIn time.Duration) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}).SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func fulfill(t *testing.T, s *Server, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/fulfillment/google-home", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	for _, healthy := range []bool{true, false} {
		s, _ := testServer(t, healthy)
		rec := httptest.NewRecorder()
		s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health_check", nil))

		body := decode(t, rec)
		if healthy {
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "OK", body["status"])
		} else {
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "FAIL", body["status"])
			assert.Equal(t, "unhealthy: bridge-x", body["detail"])
		}
		assert.Contains(t, body, "version")
	}
}

func TestFulfillmentRejectsBadTokens(t *testing.T) {
	s, _ := testServer(t, true)
	body := `{"requestId":"r1","inputs":[{"intent":"action.devices.SYNC"}]}`

	cases := map[string]string{
		"missing":   "",
		"wrong key": token(t, "other-key", util.TEST_USER_ID, time.Hour),
		"expired":   token(t, "test-access-key", util.TEST_USER_ID, -time.Hour),
		"garbage":   "not.a.jwt",
	}
	for name, bearer := range cases {
		rec := fulfill(t, s, bearer, body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestFulfillmentUnknownUser(t *testing.T) {
	s, _ := testServer(t, true)
	bearer := token(t, "test-access-key", "0b7d2c4e-93a1-4f63-8a55-2f8c1d6e7a90", time.Hour)

	rec := fulfill(t, s, bearer, `{"requestId":"r1","inputs":[{"intent":"action.devices.SYNC"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "r1", body["requestId"])
	assert.Equal(t, map[string]any{"errorCode": "authFailure"}, body["payload"])
}

func TestFulfillmentSync(t *testing.T) {
	s, _ := testServer(t, true)
	bearer := token(t, "test-access-key", util.TEST_USER_ID, time.Hour)

	rec := fulfill(t, s, bearer, `{"requestId":"r1","inputs":[{"intent":"action.devices.SYNC"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	payload := decode(t, rec)["payload"].(map[string]any)
	assert.Equal(t, util.TEST_USER_ID, payload["agentUserId"])
	devices := payload["devices"].([]any)
	require.Len(t, devices, 1)
	device := devices[0].(map[string]any)
	assert.Equal(t, "lamp/light", device["id"])
	assert.Equal(t, "action.devices.types.SWITCH", device["type"])
	assert.Equal(t, []any{"action.devices.traits.OnOff"}, device["traits"])
	assert.Equal(t, true, device["willReportState"])
}

func TestFulfillmentQuery(t *testing.T) {
	s, _ := testServer(t, true)
	bearer := token(t, "test-access-key", util.TEST_USER_ID, time.Hour)

	rec := fulfill(t, s, bearer, `{"requestId":"r2","inputs":[{"intent":"action.devices.QUERY",
		"payload":{"devices":[{"id":"lamp/light"},{"id":"ghost/light"}]}}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	devices := decode(t, rec)["payload"].(map[string]any)["devices"].(map[string]any)
	assert.Equal(t, map[string]any{"status": "SUCCESS", "online": true, "on": true}, devices["lamp/light"])
	assert.Equal(t, map[string]any{"status": "ERROR", "errorCode": "deviceNotFound"}, devices["ghost/light"])
}

func TestFulfillmentExecute(t *testing.T) {
	s, home := testServer(t, true)
	bearer := token(t, "test-access-key", util.TEST_USER_ID, time.Hour)

	rec := fulfill(t, s, bearer, `{"requestId":"r3","inputs":[{"intent":"action.devices.EXECUTE","payload":{"commands":[{
		"devices":[{"id":"lamp/light"}],
		"execution":[{"command":"action.devices.commands.OnOff","params":{"on":false}}]}]}}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	commands := decode(t, rec)["payload"].(map[string]any)["commands"].([]any)
	require.Len(t, commands, 1)
	assert.Equal(t, "PENDING", commands[0].(map[string]any)["status"])
	assert.Equal(t, []setCall{{"lamp", "light", "on", "false"}}, home.sets)
}

func TestFulfillmentDisconnectAndUnsupported(t *testing.T) {
	s, _ := testServer(t, true)
	bearer := token(t, "test-access-key", util.TEST_USER_ID, time.Hour)

	rec := fulfill(t, s, bearer, `{"requestId":"r4","inputs":[{"intent":"action.devices.DISCONNECT"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	rec = fulfill(t, s, bearer, `{"requestId":"r5","inputs":[{"intent":"action.devices.IDENTIFY"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)["payload"].(map[string]any)
	assert.Equal(t, "notSupported", payload["errorCode"])

	rec = fulfill(t, s, bearer, `{"requestId":"r6","inputs":[{"intent":"action.devices.QUERY","payload":{"devices":"lamp"}}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payload = decode(t, rec)["payload"].(map[string]any)
	assert.Equal(t, "protocolError", payload["errorCode"])
}
