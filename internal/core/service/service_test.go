package service

import (
	"github.com/berfenger/homie2google/internal/core/domain"
)

func value(v string) *string {
	return &v
}

func onProperty(v string) domain.Property {
	return domain.Property{Id: PROPERTY_ON, Name: "On", Datatype: domain.DatatypeBoolean, Settable: true, Retained: true, Value: value(v)}
}

func brightnessProperty(v string) domain.Property {
	return domain.Property{Id: PROPERTY_BRIGHTNESS, Name: "Brightness", Datatype: domain.DatatypeInteger, Format: "0:100",
		Settable: true, Retained: true, Value: value(v)}
}

func colorProperty(format, v string) domain.Property {
	return domain.Property{Id: PROPERTY_COLOR, Name: "Colour", Datatype: domain.DatatypeColor, Format: format,
		Settable: true, Retained: true, Value: value(v)}
}

func temperatureProperty(v string) domain.Property {
	return domain.Property{Id: PROPERTY_TEMPERATURE, Name: "Temperature", Datatype: domain.DatatypeFloat, Unit: "°C",
		Retained: true, Value: value(v)}
}

func humidityProperty(v string) domain.Property {
	return domain.Property{Id: PROPERTY_HUMIDITY, Name: "Humidity", Datatype: domain.DatatypeInteger, Unit: "%",
		Retained: true, Value: value(v)}
}

func node(id, name string, properties ...domain.Property) domain.Node {
	n := domain.Node{Id: id, Name: name, PropertyIds: []string{}, Properties: map[string]domain.Property{}}
	for _, p := range properties {
		n.PropertyIds = append(n.PropertyIds, p.Id)
		n.Properties[p.Id] = p
	}
	return n
}

func device(id, name string, state domain.State, nodes ...domain.Node) domain.Device {
	d := domain.Device{Id: id, Name: name, Homie: "4.0", State: state, NodeIds: []string{}, Nodes: map[string]domain.Node{}}
	for _, n := range nodes {
		d.NodeIds = append(d.NodeIds, n.Id)
		d.Nodes[n.Id] = n
	}
	return d
}
