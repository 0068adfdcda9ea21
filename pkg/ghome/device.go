package ghome

// device types
const (
	TypeSwitch     Type = "action.devices.types.SWITCH"
	TypeLight      Type = "action.devices.types.LIGHT"
	TypeOutlet     Type = "action.devices.types.OUTLET"
	TypeThermostat Type = "action.devices.types.THERMOSTAT"
	TypeSensor     Type = "action.devices.types.SENSOR"
)

// device traits
const (
	TraitOnOff              Trait = "action.devices.traits.OnOff"
	TraitBrightness         Trait = "action.devices.traits.Brightness"
	TraitColorSetting       Trait = "action.devices.traits.ColorSetting"
	TraitTemperatureSetting Trait = "action.devices.traits.TemperatureSetting"
)

// color models reported in the ColorSetting attributes
const (
	ColorModelRGB = "rgb"
	ColorModelHSV = "hsv"
)

// thermostat temperature units
const (
	TemperatureUnitCelsius    = "C"
	TemperatureUnitFahrenheit = "F"
)

type Type string

type Trait string

type DeviceName struct {
	DefaultNames []string `json:"defaultNames,omitempty"`
	Name         string   `json:"name"`
	Nicknames    []string `json:"nicknames,omitempty"`
}

type DeviceInfo struct {
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	HwVersion    string `json:"hwVersion,omitempty"`
	SwVersion    string `json:"swVersion,omitempty"`
}

// Attributes holds the trait attributes a Device declares in a SYNC response.
// Unset fields are omitted from the serialized object.
type Attributes struct {
	ColorModel                  string   `json:"colorModel,omitempty"`
	AvailableThermostatModes    []string `json:"availableThermostatModes,omitempty"`
	ThermostatTemperatureUnit   string   `json:"thermostatTemperatureUnit,omitempty"`
	QueryOnlyTemperatureSetting bool     `json:"queryOnlyTemperatureSetting,omitempty"`
}

// Device is the structural description of one controllable unit as returned
// by the SYNC intent.
type Device struct {
	ID                           string         `json:"id"`
	Type                         Type           `json:"type"`
	Traits                       []Trait        `json:"traits"`
	Name                         DeviceName     `json:"name"`
	WillReportState              bool           `json:"willReportState"`
	NotificationSupportedByAgent bool           `json:"notificationSupportedByAgent,omitempty"`
	RoomHint                     string         `json:"roomHint,omitempty"`
	DeviceInfo                   *DeviceInfo    `json:"deviceInfo,omitempty"`
	Attributes                   Attributes     `json:"attributes"`
	CustomData                   map[string]any `json:"customData,omitempty"`
}

// HasTrait reports whether the device declares the given trait.
func (d Device) HasTrait(trait Trait) bool {
	for _, t := range d.Traits {
		if t == trait {
			return true
		}
	}
	return false
}
