package service

import (
	"github.com/berfenger/homie2google/internal/core/codec"
	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/pkg/ghome"
)

// NodeState builds the cloud state of a node from its current property
// values. Availability is always stamped from the device reachability. The
// boolean is false when no capability value could be converted.
func NodeState(device domain.Device, node domain.Node) (map[string]any, bool) {
	state := map[string]any{
		ghome.StateOnline: device.Reachable(),
	}
	found := false

	if p, ok := node.Property(PROPERTY_ON); ok {
		if on, ok := codec.ToBool(p); ok {
			state[ghome.StateOn] = on
			found = true
		}
	}
	if p, ok := node.Property(PROPERTY_BRIGHTNESS); ok {
		if pct, ok := codec.ToPercentage(p); ok {
			state[ghome.StateBrightness] = pct
			found = true
		}
	}
	if p, ok := node.Property(PROPERTY_COLOR); ok {
		if color, ok := codec.ToColor(p); ok {
			state[ghome.StateColor] = ghome.Color{Value: color}
			found = true
		}
	}
	if p, ok := node.Property(PROPERTY_TEMPERATURE); ok {
		if t, ok := codec.ToNumber(p); ok {
			state[ghome.StateThermostatMode] = "off"
			state[ghome.StateThermostatTemperatureAmbient] = t
			found = true
		}
	}
	if p, ok := node.Property(PROPERTY_HUMIDITY); ok {
		if h, ok := codec.ToNumber(p); ok {
			state[ghome.StateThermostatHumidityAmbient] = h
			found = true
		}
	}

	return state, found
}
