package service

import (
	"github.com/berfenger/homie2google/internal/core/codec"
	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/pkg/ghome"
)

// well-known property ids a node exposes its capabilities with
const (
	PROPERTY_ON          = "on"
	PROPERTY_BRIGHTNESS  = "brightness"
	PROPERTY_COLOR       = "color"
	PROPERTY_TEMPERATURE = "temperature"
	PROPERTY_HUMIDITY    = "humidity"
)

// NodeToDevice derives the cloud device of a Homie node. Rules are cumulative
// and the last matching rule decides the device type. Nodes without a
// recognized capability yield false.
func NodeToDevice(device domain.Device, node domain.Node) (ghome.Device, bool) {
	var deviceType ghome.Type
	traits := []ghome.Trait{}
	attributes := ghome.Attributes{}

	_, hasOn := node.Property(PROPERTY_ON)
	if hasOn {
		deviceType = ghome.TypeSwitch
		traits = append(traits, ghome.TraitOnOff)
	}
	if _, ok := node.Property(PROPERTY_BRIGHTNESS); ok {
		if hasOn {
			deviceType = ghome.TypeLight
		}
		traits = append(traits, ghome.TraitBrightness)
	}
	if color, ok := node.Property(PROPERTY_COLOR); ok {
		if format, ok := codec.ColorFormat(color); ok {
			deviceType = ghome.TypeLight
			traits = append(traits, ghome.TraitColorSetting)
			attributes.ColorModel = format.String()
		}
	}
	if _, ok := node.Property(PROPERTY_TEMPERATURE); ok {
		deviceType = ghome.TypeThermostat
		traits = append(traits, ghome.TraitTemperatureSetting)
		attributes.AvailableThermostatModes = []string{"off"}
		attributes.ThermostatTemperatureUnit = ghome.TemperatureUnitCelsius
		attributes.QueryOnlyTemperatureSetting = true
	}

	if deviceType == "" {
		return ghome.Device{}, false
	}

	nodeName := node.DisplayName()
	return ghome.Device{
		ID:     domain.NodeAddress(device.Id, node.Id),
		Type:   deviceType,
		Traits: traits,
		Name: ghome.DeviceName{
			Name:      device.DisplayName() + " " + nodeName,
			Nicknames: []string{nodeName},
		},
		WillReportState: len(traits) > 0,
		Attributes:      attributes,
	}, true
}
