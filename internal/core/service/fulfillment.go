package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/berfenger/homie2google/internal/core/codec"
	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/core/port"
	"github.com/berfenger/homie2google/pkg/ghome"

	"go.uber.org/zap"
)

type Fulfillment struct {
	Logger *zap.Logger
}

func NewFulfillment(logger *zap.Logger) *Fulfillment {
	return &Fulfillment{Logger: logger.With(zap.String("service", "fulfillment"))}
}

// Sync returns the cloud devices of every reachable Homie device, sorted by id.
func (f *Fulfillment) Sync(devices domain.Devices) []ghome.Device {
	out := []ghome.Device{}
	for _, device := range devices {
		if !device.Reachable() {
			continue
		}
		for _, node := range device.Nodes {
			if d, ok := NodeToDevice(device, node); ok {
				out = append(out, d)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	f.Logger.Info(fmt.Sprintf("synced %d devices", len(out)))
	return out
}

// Query returns the current state of each requested node. Each id is resolved
// independently.
func (f *Fulfillment) Query(devices domain.Devices, ids []string) map[string]ghome.QueryDevice {
	out := make(map[string]ghome.QueryDevice, len(ids))
	for _, id := range ids {
		device, node, ok := devices.Lookup(id)
		if !ok {
			out[id] = ghome.QueryDevice{Status: ghome.StatusError, ErrorCode: ghome.ErrorDeviceNotFound}
			continue
		}
		if !device.Reachable() {
			out[id] = ghome.QueryDevice{Status: ghome.StatusOffline, ErrorCode: ghome.ErrorOffline}
			continue
		}
		state, _ := NodeState(device, node)
		out[id] = ghome.QueryDevice{Status: ghome.StatusSuccess, State: state}
	}
	return out
}

// Execute applies every execution of a command to every device of that
// command, writing through the setter. One result is returned per pair.
func (f *Fulfillment) Execute(ctx context.Context, home port.Home, commands []ghome.Command) []ghome.CommandResult {
	devices := home.Devices()
	results := []ghome.CommandResult{}
	for _, command := range commands {
		for _, execution := range command.Executions {
			for _, ref := range command.Devices {
				results = append(results, f.executeOne(ctx, home, devices, execution, ref.ID))
			}
		}
	}
	return results
}

func (f *Fulfillment) executeOne(ctx context.Context, setter port.PropertySetter, devices domain.Devices,
	execution ghome.Execution, id string) ghome.CommandResult {

	device, node, ok := devices.Lookup(id)
	if !ok {
		return commandError(id, ghome.StatusError, ghome.ErrorDeviceNotFound)
	}
	if !device.Reachable() {
		return commandError(id, ghome.StatusOffline, ghome.ErrorDeviceOffline)
	}

	cmd, err := execution.Decode()
	if err != nil {
		var unsupported *ghome.UnsupportedCommandError
		if errors.As(err, &unsupported) {
			return commandError(id, ghome.StatusError, ghome.ErrorActionNotAvailable)
		}
		f.Logger.Warn("invalid execution params", zap.String("id", id), zap.String("command", execution.Command), zap.Error(err))
		return commandError(id, ghome.StatusError, ghome.ErrorProtocol)
	}

	propertyId, value, ok := commandValue(node, cmd)
	if !ok {
		return commandError(id, ghome.StatusError, ghome.ErrorActionNotAvailable)
	}

	if err := setter.Set(ctx, device.Id, node.Id, propertyId, value); err != nil {
		f.Logger.Error("failed to set property", zap.String("id", id), zap.String("property", propertyId),
			zap.String("value", value), zap.Error(err))
		return commandError(id, ghome.StatusError, ghome.ErrorTransient)
	}
	return ghome.CommandResult{IDs: []string{id}, Status: ghome.StatusPending}
}

// commandValue resolves the property a command writes and its new value.
func commandValue(node domain.Node, cmd ghome.ExecuteCommand) (string, string, bool) {
	switch c := cmd.(type) {
	case ghome.OnOff:
		if p, ok := node.Property(PROPERTY_ON); ok {
			if v, ok := codec.FromBool(p, c.On); ok {
				return PROPERTY_ON, v, true
			}
		}
	case ghome.BrightnessAbsolute:
		if p, ok := node.Property(PROPERTY_BRIGHTNESS); ok {
			if v, ok := codec.FromPercentage(p, c.Brightness); ok {
				return PROPERTY_BRIGHTNESS, v, true
			}
		}
	case ghome.ColorAbsolute:
		if p, ok := node.Property(PROPERTY_COLOR); ok {
			if v, ok := codec.FromColor(p, c.Color.Value); ok {
				return PROPERTY_COLOR, v, true
			}
		}
	}
	return "", "", false
}

func commandError(id, status, code string) ghome.CommandResult {
	return ghome.CommandResult{IDs: []string{id}, Status: status, ErrorCode: code}
}
