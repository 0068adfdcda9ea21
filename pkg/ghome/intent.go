package ghome

import "encoding/json"

// fulfillment intents
const (
	IntentSync       = "action.devices.SYNC"
	IntentQuery      = "action.devices.QUERY"
	IntentExecute    = "action.devices.EXECUTE"
	IntentDisconnect = "action.devices.DISCONNECT"
)

// per-device statuses
const (
	StatusSuccess = "SUCCESS"
	StatusPending = "PENDING"
	StatusOffline = "OFFLINE"
	StatusError   = "ERROR"
)

// error codes
const (
	ErrorDeviceNotFound     = "deviceNotFound"
	ErrorActionNotAvailable = "actionNotAvailable"
	ErrorOffline            = "offline"
	ErrorDeviceOffline      = "deviceOffline"
	ErrorTransient          = "transientError"
	ErrorAuthFailure        = "authFailure"
	ErrorProtocol           = "protocolError"
	ErrorNotSupported       = "notSupported"
)

// Request is the body Google posts to the fulfillment endpoint.
type Request struct {
	RequestID string  `json:"requestId"`
	Inputs    []Input `json:"inputs"`
}

type Input struct {
	Intent  string          `json:"intent"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response wraps any intent payload. Payload is nil for DISCONNECT.
type Response struct {
	RequestID string `json:"requestId"`
	Payload   any    `json:"payload,omitempty"`
}

// ErrorPayload is the payload of a request that failed as a whole.
type ErrorPayload struct {
	ErrorCode   string `json:"errorCode"`
	DebugString string `json:"debugString,omitempty"`
}

type SyncResponsePayload struct {
	AgentUserID string   `json:"agentUserId"`
	Devices     []Device `json:"devices"`
}

// DeviceRef references a device by id in QUERY and EXECUTE requests.
type DeviceRef struct {
	ID         string         `json:"id"`
	CustomData map[string]any `json:"customData,omitempty"`
}

// Input returns the first input of the request carrying the given intent.
func (r Request) Input(intent string) (Input, bool) {
	for _, in := range r.Inputs {
		if in.Intent == intent {
			return in, true
		}
	}
	return Input{}, false
}
