package ghome

import (
	"encoding/json"
	"maps"
)

// state keys reported in QUERY responses and Report State calls
const (
	StateOnline                       = "online"
	StateOn                           = "on"
	StateBrightness                   = "brightness"
	StateColor                        = "color"
	StateThermostatMode               = "thermostatMode"
	StateThermostatTemperatureAmbient = "thermostatTemperatureAmbient"
	StateThermostatHumidityAmbient    = "thermostatHumidityAmbient"
)

type QueryRequestPayload struct {
	Devices []DeviceRef `json:"devices"`
}

type QueryResponsePayload struct {
	Devices map[string]QueryDevice `json:"devices"`
}

// QueryDevice is the per-device entry of a QUERY response. The state entries
// are flattened next to status and errorCode on the wire.
type QueryDevice struct {
	Status    string
	ErrorCode string
	State     map[string]any
}

func (d QueryDevice) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.State)+2)
	maps.Copy(out, d.State)
	out["status"] = d.Status
	if d.ErrorCode != "" {
		out["errorCode"] = d.ErrorCode
	}
	return json.Marshal(out)
}

func (d *QueryDevice) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if s, ok := raw["status"].(string); ok {
		d.Status = s
	}
	if e, ok := raw["errorCode"].(string); ok {
		d.ErrorCode = e
	}
	delete(raw, "status")
	delete(raw, "errorCode")
	d.State = raw
	return nil
}
