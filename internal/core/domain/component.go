package domain

import (
	"maps"
	"strings"
)

// Datatype is the declared type of a Homie property.
type Datatype int

const (
	DatatypeUnknown Datatype = iota
	DatatypeInteger
	DatatypeFloat
	DatatypeBoolean
	DatatypeString
	DatatypeEnum
	DatatypeColor
	DatatypeDatetime
	DatatypeDuration
)

func ParseDatatype(s string) (Datatype, bool) {
	switch s {
	case "integer":
		return DatatypeInteger, true
	case "float":
		return DatatypeFloat, true
	case "boolean":
		return DatatypeBoolean, true
	case "string":
		return DatatypeString, true
	case "enum":
		return DatatypeEnum, true
	case "color":
		return DatatypeColor, true
	case "datetime":
		return DatatypeDatetime, true
	case "duration":
		return DatatypeDuration, true
	}
	return DatatypeUnknown, false
}

func (d Datatype) String() string {
	switch d {
	case DatatypeInteger:
		return "integer"
	case DatatypeFloat:
		return "float"
	case DatatypeBoolean:
		return "boolean"
	case DatatypeString:
		return "string"
	case DatatypeEnum:
		return "enum"
	case DatatypeColor:
		return "color"
	case DatatypeDatetime:
		return "datetime"
	case DatatypeDuration:
		return "duration"
	}
	return "unknown"
}

// ColorFormat is the color space declared in the $format of a color property.
type ColorFormat int

const (
	ColorFormatRGB ColorFormat = iota + 1
	ColorFormatHSV
)

func ParseColorFormat(s string) (ColorFormat, bool) {
	switch s {
	case "rgb":
		return ColorFormatRGB, true
	case "hsv":
		return ColorFormatHSV, true
	}
	return 0, false
}

func (f ColorFormat) String() string {
	switch f {
	case ColorFormatRGB:
		return "rgb"
	case ColorFormatHSV:
		return "hsv"
	}
	return "unknown"
}

// State is the lifecycle state a Homie device publishes in $state.
type State int

const (
	StateUnknown State = iota
	StateInit
	StateReady
	StateDisconnected
	StateSleeping
	StateLost
	StateAlert
)

func ParseState(s string) (State, bool) {
	switch s {
	case "init":
		return StateInit, true
	case "ready":
		return StateReady, true
	case "disconnected":
		return StateDisconnected, true
	case "sleeping":
		return StateSleeping, true
	case "lost":
		return StateLost, true
	case "alert":
		return StateAlert, true
	}
	return StateUnknown, false
}

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	case StateSleeping:
		return "sleeping"
	case StateLost:
		return "lost"
	case StateAlert:
		return "alert"
	}
	return "unknown"
}

type Property struct {
	Id       string
	Name     string
	Datatype Datatype
	Format   string // "min:max" range, enum values or color space
	Unit     string
	Settable bool
	Retained bool
	Value    *string // last value seen on the bus, nil if never published
}

// RawValue returns the last published value.
func (p Property) RawValue() (string, bool) {
	if p.Value == nil {
		return "", false
	}
	return *p.Value, true
}

func (p Property) HasRequiredAttributes() bool {
	return p.Name != "" && p.Datatype != DatatypeUnknown
}

type Node struct {
	Id          string
	Name        string
	Type        string
	PropertyIds []string // as listed in $properties, nil until published
	Properties  map[string]Property
}

func (n Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Id
}

func (n Node) HasRequiredAttributes() bool {
	return n.Name != "" && n.PropertyIds != nil
}

func (n Node) Property(id string) (Property, bool) {
	p, ok := n.Properties[id]
	return p, ok
}

func (n Node) Clone() Node {
	c := n
	if n.PropertyIds != nil {
		c.PropertyIds = append([]string{}, n.PropertyIds...)
	}
	c.Properties = maps.Clone(n.Properties)
	if c.Properties == nil {
		c.Properties = map[string]Property{}
	}
	return c
}

type Device struct {
	Id          string
	Name        string
	Homie       string // convention version from $homie
	State       State
	Implemented string
	NodeIds     []string // as listed in $nodes, nil until published
	Nodes       map[string]Node
}

func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Id
}

func (d Device) HasRequiredAttributes() bool {
	return d.Homie != "" && d.Name != "" && d.State != StateUnknown
}

// Reachable reports whether the device can be exposed to the cloud.
func (d Device) Reachable() bool {
	return d.State == StateReady || d.State == StateSleeping
}

func (d Device) Node(id string) (Node, bool) {
	n, ok := d.Nodes[id]
	return n, ok
}

func (d Device) Clone() Device {
	c := d
	if d.NodeIds != nil {
		c.NodeIds = append([]string{}, d.NodeIds...)
	}
	c.Nodes = make(map[string]Node, len(d.Nodes))
	for id, n := range d.Nodes {
		c.Nodes[id] = n.Clone()
	}
	return c
}

// Devices is a snapshot of a user's device tree keyed by device id.
type Devices map[string]Device

// Lookup resolves a node address.
func (ds Devices) Lookup(address string) (Device, Node, bool) {
	deviceId, nodeId, ok := SplitNodeAddress(address)
	if !ok {
		return Device{}, Node{}, false
	}
	d, ok := ds[deviceId]
	if !ok {
		return Device{}, Node{}, false
	}
	n, ok := d.Nodes[nodeId]
	if !ok {
		return Device{}, Node{}, false
	}
	return d, n, true
}

// NodeAddress is the id a node is known by on the cloud side.
func NodeAddress(deviceId, nodeId string) string {
	return deviceId + "/" + nodeId
}

func SplitNodeAddress(address string) (string, string, bool) {
	deviceId, nodeId, ok := strings.Cut(address, "/")
	if !ok || deviceId == "" || nodeId == "" || strings.Contains(nodeId, "/") {
		return "", "", false
	}
	return deviceId, nodeId, true
}
