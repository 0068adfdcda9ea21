package domain

const (
	ACTOR_ID_MASTER    = "master"
	ACTOR_ID_HOMEGRAPH = "homegraph"
	ACTOR_ID_BRIDGE    = "bridge"
	ACTOR_ID_RESYNC    = "resync"
)

// BridgeActorId is the child name of the bridge serving the given user.
func BridgeActorId(userId string) string {
	return ACTOR_ID_BRIDGE + "-" + userId
}

type ReportStateRequest struct {
	ActorRequestMixIn
	UserId string
	NodeId string
	State  map[string]any
}

type ReportStateResponse struct {
	ActorResponseMixIn
}

type RequestSyncRequest struct {
	ActorRequestMixIn
	UserId string
}

type RequestSyncResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
