package domain

// BridgeRequest

type BridgeRequest interface {
	ActorRequest
	bridgeCommand()
}

type BridgeRequestMixIn struct {
	ActorRequestMixIn
}

func (r BridgeRequestMixIn) bridgeCommand() {}

// BridgeResponse

type BridgeResponse interface {
	ActorResponse
	bridgeResponse()
}

type BridgeResponseMixIn struct {
	ActorResponseMixIn
}

func (r BridgeResponseMixIn) bridgeResponse() {}

// Bridge commands

// BridgeResyncRequest asks the bridge to request a full cloud sync. It goes
// through the request sync rate limit.
type BridgeResyncRequest struct {
	BridgeRequestMixIn
}

type BridgeResyncResponse struct {
	BridgeResponseMixIn
}

// BridgeReportAllRequest asks the bridge to report the state of every
// reachable node of the user.
type BridgeReportAllRequest struct {
	BridgeRequestMixIn
}

type BridgeReportAllResponse struct {
	BridgeResponseMixIn
	Reported int
}

// ensure interface compliance
var (
	_ BridgeRequest  = (*BridgeResyncRequest)(nil)
	_ BridgeRequest  = (*BridgeReportAllRequest)(nil)
	_ BridgeResponse = (*BridgeResyncResponse)(nil)
	_ BridgeResponse = (*BridgeReportAllResponse)(nil)
)
