package ghome

import (
	"encoding/json"
	"errors"
)

var ErrInvalidColor = errors.New("color has neither spectrumRGB nor spectrumHSV")

// ColorValue is either a SpectrumRGB or a SpectrumHSV.
type ColorValue interface {
	isColorValue()
}

// SpectrumRGB is a 24-bit packed RGB color (0xRRGGBB).
type SpectrumRGB uint32

// SpectrumHSV has hue in degrees [0,360), saturation and value in [0,1].
type SpectrumHSV struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Value      float64 `json:"value"`
}

func (SpectrumRGB) isColorValue() {}

func (SpectrumHSV) isColorValue() {}

// Color is the color state reported in QUERY responses and Report State calls.
// It serializes as {"spectrumRgb": n} or {"spectrumHsv": {...}}.
type Color struct {
	Value ColorValue
}

func (c Color) MarshalJSON() ([]byte, error) {
	switch v := c.Value.(type) {
	case SpectrumRGB:
		return json.Marshal(struct {
			SpectrumRgb uint32 `json:"spectrumRgb"`
		}{uint32(v)})
	case SpectrumHSV:
		return json.Marshal(struct {
			SpectrumHsv SpectrumHSV `json:"spectrumHsv"`
		}{v})
	default:
		return nil, ErrInvalidColor
	}
}

// CommandColor is the color parameter of a ColorAbsolute command. Commands use
// the "spectrumRGB" / "spectrumHSV" spelling.
type CommandColor struct {
	Name  string
	Value ColorValue
}

type commandColorJSON struct {
	Name        string       `json:"name,omitempty"`
	SpectrumRGB *uint32      `json:"spectrumRGB,omitempty"`
	SpectrumHSV *SpectrumHSV `json:"spectrumHSV,omitempty"`
}

func (c *CommandColor) UnmarshalJSON(data []byte) error {
	var raw commandColorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Name = raw.Name
	switch {
	case raw.SpectrumRGB != nil:
		c.Value = SpectrumRGB(*raw.SpectrumRGB)
	case raw.SpectrumHSV != nil:
		c.Value = *raw.SpectrumHSV
	default:
		return ErrInvalidColor
	}
	return nil
}

func (c CommandColor) MarshalJSON() ([]byte, error) {
	raw := commandColorJSON{Name: c.Name}
	switch v := c.Value.(type) {
	case SpectrumRGB:
		rgb := uint32(v)
		raw.SpectrumRGB = &rgb
	case SpectrumHSV:
		raw.SpectrumHSV = &v
	default:
		return nil, ErrInvalidColor
	}
	return json.Marshal(raw)
}
