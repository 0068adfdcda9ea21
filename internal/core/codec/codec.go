// Package codec converts Homie property values to and from the values used by
// the Google Smart Home protocol. Conversions never fail loudly: a value that
// does not match the expected shape yields ok == false.
package codec

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/pkg/ghome"
)

// ToPercentage scales the value of an integer or float property with a
// "min:max" format to [0,100].
func ToPercentage(p domain.Property) (uint8, bool) {
	switch p.Datatype {
	case domain.DatatypeInteger:
		value, ok := intValue(p)
		if !ok {
			return 0, false
		}
		min, max, ok := intRange(p.Format)
		if !ok {
			return 0, false
		}
		return intPercentage(value, min, max), true
	case domain.DatatypeFloat:
		value, ok := floatValue(p)
		if !ok {
			return 0, false
		}
		min, max, ok := floatRange(p.Format)
		if !ok {
			return 0, false
		}
		pct := (value - min) * 100 / (max - min)
		return uint8(clamp(pct, 0, 100)), true
	}
	return 0, false
}

// FromPercentage is the inverse of ToPercentage, formatted as the property's
// native encoding.
func FromPercentage(p domain.Property, pct uint8) (string, bool) {
	if pct > 100 {
		pct = 100
	}
	switch p.Datatype {
	case domain.DatatypeInteger:
		min, max, ok := intRange(p.Format)
		if !ok {
			return "", false
		}
		return intFromPercentage(pct, min, max), true
	case domain.DatatypeFloat:
		min, max, ok := floatRange(p.Format)
		if !ok {
			return "", false
		}
		return formatFloat(min + float64(pct)*(max-min)/100), true
	}
	return "", false
}

// ToNumber returns the value of an integer or float property.
func ToNumber(p domain.Property) (float64, bool) {
	switch p.Datatype {
	case domain.DatatypeInteger:
		v, ok := intValue(p)
		return float64(v), ok
	case domain.DatatypeFloat:
		return floatValue(p)
	}
	return 0, false
}

// ToBool returns the value of a boolean property.
func ToBool(p domain.Property) (bool, bool) {
	if p.Datatype != domain.DatatypeBoolean {
		return false, false
	}
	raw, ok := p.RawValue()
	if !ok {
		return false, false
	}
	return ParseBool(raw)
}

// FromBool formats a value for a boolean property.
func FromBool(p domain.Property, v bool) (string, bool) {
	if p.Datatype != domain.DatatypeBoolean {
		return "", false
	}
	return strconv.FormatBool(v), true
}

// ParseBool accepts the Homie boolean payloads "true" and "false" only.
func ParseBool(raw string) (bool, bool) {
	switch raw {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// ColorFormat returns the color space of a color property.
func ColorFormat(p domain.Property) (domain.ColorFormat, bool) {
	if p.Datatype != domain.DatatypeColor {
		return 0, false
	}
	return domain.ParseColorFormat(p.Format)
}

// ToColor converts the value of an rgb or hsv color property.
func ToColor(p domain.Property) (ghome.ColorValue, bool) {
	format, ok := ColorFormat(p)
	if !ok {
		return nil, false
	}
	raw, ok := p.RawValue()
	if !ok {
		return nil, false
	}
	switch format {
	case domain.ColorFormatRGB:
		r, g, b, ok := parseTriple(raw, 255, 255, 255)
		if !ok {
			return nil, false
		}
		return ghome.SpectrumRGB(r<<16 | g<<8 | b), true
	case domain.ColorFormatHSV:
		h, s, v, ok := parseTriple(raw, 360, 100, 100)
		if !ok {
			return nil, false
		}
		return ghome.SpectrumHSV{
			Hue:        float64(h),
			Saturation: float64(s) / 100,
			Value:      float64(v) / 100,
		}, true
	}
	return nil, false
}

// FromColor converts a command color into the value to publish on the given
// color property. The command color space must match the property format.
func FromColor(p domain.Property, c ghome.ColorValue) (string, bool) {
	format, ok := ColorFormat(p)
	if !ok {
		return "", false
	}
	switch format {
	case domain.ColorFormatRGB:
		rgb, ok := c.(ghome.SpectrumRGB)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%d,%d,%d", uint8(rgb>>16), uint8(rgb>>8), uint8(rgb)), true
	case domain.ColorFormatHSV:
		hsv, ok := c.(ghome.SpectrumHSV)
		if !ok {
			return "", false
		}
		h := uint16(clamp(hsv.Hue, 0, 360))
		s := uint8(clamp(hsv.Saturation*100, 0, 100))
		v := uint8(clamp(hsv.Value*100, 0, 100))
		return fmt.Sprintf("%d,%d,%d", h, s, v), true
	}
	return "", false
}

func intValue(p domain.Property) (int64, bool) {
	raw, ok := p.RawValue()
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	return v, err == nil
}

func floatValue(p domain.Property) (float64, bool) {
	raw, ok := p.RawValue()
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	return v, err == nil
}

// intPercentage computes (value-min)*100/(max-min) with truncating division.
// Wide ranges overflow int64, so the arithmetic runs on big integers.
func intPercentage(value, min, max int64) uint8 {
	lo := big.NewInt(min)
	pct := new(big.Int).Sub(big.NewInt(value), lo)
	pct.Mul(pct, big.NewInt(100))
	pct.Quo(pct, new(big.Int).Sub(big.NewInt(max), lo))
	switch {
	case pct.Sign() < 0:
		return 0
	case pct.Cmp(big.NewInt(100)) > 0:
		return 100
	}
	return uint8(pct.Int64())
}

func intFromPercentage(pct uint8, min, max int64) string {
	lo := big.NewInt(min)
	v := new(big.Int).Sub(big.NewInt(max), lo)
	v.Mul(v, big.NewInt(int64(pct)))
	v.Quo(v, big.NewInt(100))
	return v.Add(v, lo).String()
}

func intRange(format string) (int64, int64, bool) {
	lo, hi, ok := strings.Cut(format, ":")
	if !ok {
		return 0, 0, false
	}
	min, err := strconv.ParseInt(lo, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	max, err := strconv.ParseInt(hi, 10, 64)
	if err != nil || max <= min {
		return 0, 0, false
	}
	return min, max, true
}

func floatRange(format string) (float64, float64, bool) {
	lo, hi, ok := strings.Cut(format, ":")
	if !ok {
		return 0, 0, false
	}
	min, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return 0, 0, false
	}
	max, err := strconv.ParseFloat(hi, 64)
	if err != nil || !(max > min) {
		return 0, 0, false
	}
	return min, max, true
}

// parseTriple parses "a,b,c" with each component bounded by the given maximum.
func parseTriple(raw string, maxA, maxB, maxC uint32) (uint32, uint32, uint32, bool) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	var out [3]uint32
	for i, max := range []uint32{maxA, maxB, maxC} {
		v, err := strconv.ParseUint(strings.TrimSpace(parts[i]), 10, 32)
		if err != nil || uint32(v) > max {
			return 0, 0, 0, false
		}
		out[i] = uint32(v)
	}
	return out[0], out[1], out[2], true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clamp[N int64 | float64](v, min, max N) N {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
