package service

import (
	"testing"

	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/pkg/ghome"
	"github.com/stretchr/testify/assert"
)

func TestLightWithBrightness(t *testing.T) {

	assert := assert.New(t)

	d := device("device", "Device name", domain.StateReady,
		node("node", "Node name", onProperty("true"), brightnessProperty("100")))

	gd, ok := NodeToDevice(d, d.Nodes["node"])
	assert.True(ok)
	assert.Equal(ghome.Device{
		ID:     "device/node",
		Type:   ghome.TypeLight,
		Traits: []ghome.Trait{ghome.TraitOnOff, ghome.TraitBrightness},
		Name: ghome.DeviceName{
			Name:      "Device name Node name",
			Nicknames: []string{"Node name"},
		},
		WillReportState: true,
	}, gd)
}

func TestLightWithColor(t *testing.T) {

	assert := assert.New(t)

	d := device("device", "Device name", domain.StateReady,
		node("node", "Node name", onProperty("true"), colorProperty("rgb", "255,255,0")))

	gd, ok := NodeToDevice(d, d.Nodes["node"])
	assert.True(ok)
	assert.Equal(ghome.TypeLight, gd.Type)
	assert.Equal([]ghome.Trait{ghome.TraitOnOff, ghome.TraitColorSetting}, gd.Traits)
	assert.Equal(ghome.Attributes{ColorModel: ghome.ColorModelRGB}, gd.Attributes)
}

func TestColorWithInvalidFormatIsIgnored(t *testing.T) {

	assert := assert.New(t)

	d := device("device", "", domain.StateReady,
		node("node", "", onProperty("true"), colorProperty("xyz", "1,2,3")))

	gd, ok := NodeToDevice(d, d.Nodes["node"])
	assert.True(ok)
	assert.Equal(ghome.TypeSwitch, gd.Type)
	assert.Equal([]ghome.Trait{ghome.TraitOnOff}, gd.Traits)
	assert.Equal("device node", gd.Name.Name)
	assert.Equal([]string{"node"}, gd.Name.Nicknames)
}

func TestTemperatureSensor(t *testing.T) {

	assert := assert.New(t)

	d := device("device", "Device name", domain.StateReady,
		node("node", "Node name", temperatureProperty("21.5")))

	gd, ok := NodeToDevice(d, d.Nodes["node"])
	assert.True(ok)
	assert.Equal(ghome.TypeThermostat, gd.Type)
	assert.Equal([]ghome.Trait{ghome.TraitTemperatureSetting}, gd.Traits)
	assert.Equal(ghome.Attributes{
		AvailableThermostatModes:    []string{"off"},
		ThermostatTemperatureUnit:   ghome.TemperatureUnitCelsius,
		QueryOnlyTemperatureSetting: true,
	}, gd.Attributes)
	assert.True(gd.WillReportState)
}

func TestTemperatureOverridesType(t *testing.T) {

	d := device("device", "Device name", domain.StateReady,
		node("node", "Node name", onProperty("false"), temperatureProperty("21.5")))

	gd, ok := NodeToDevice(d, d.Nodes["node"])
	assert.True(t, ok)
	assert.Equal(t, ghome.TypeThermostat, gd.Type)
	assert.Equal(t, []ghome.Trait{ghome.TraitOnOff, ghome.TraitTemperatureSetting}, gd.Traits)
}

func TestNoRecognizedCapability(t *testing.T) {

	assert := assert.New(t)

	d := device("device", "Device name", domain.StateReady,
		node("plain", "Plain", domain.Property{Id: "label", Name: "Label", Datatype: domain.DatatypeString}),
		node("dimmer", "Dimmer", brightnessProperty("50")))

	_, ok := NodeToDevice(d, d.Nodes["plain"])
	assert.False(ok)

	// brightness alone does not decide a type
	_, ok = NodeToDevice(d, d.Nodes["dimmer"])
	assert.False(ok)
}
