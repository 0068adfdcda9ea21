package homie

import (
	"fmt"
	"strings"
	"sync"

	"github.com/berfenger/homie2google/internal/core/codec"
	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/mqtt"
)

// Tree is the live device tree of one Homie prefix. Apply is called by a
// single writer, the MQTT delivery goroutine; readers get copies.
type Tree struct {
	mu      sync.RWMutex
	devices domain.Devices
}

func NewTree() *Tree {
	return &Tree{devices: domain.Devices{}}
}

func (t *Tree) Devices() domain.Devices {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(domain.Devices, len(t.devices))
	for id, d := range t.devices {
		out[id] = d.Clone()
	}
	return out
}

func (t *Tree) Node(deviceId, nodeId string) (domain.Device, domain.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.devices[deviceId]
	if !ok {
		return domain.Device{}, domain.Node{}, false
	}
	n, ok := d.Nodes[nodeId]
	if !ok {
		return domain.Device{}, domain.Node{}, false
	}
	device := d
	device.Nodes = nil
	return device, n.Clone(), true
}

// Apply updates the tree with one bus message and returns the resulting
// events. Malformed payloads leave the tree untouched and return an error.
func (t *Tree) Apply(topic mqtt.ParsedHomieTopic, payload string) ([]domain.HomieEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch topic.Kind {
	case mqtt.TopicDeviceAttribute:
		return t.applyDeviceAttribute(topic, payload)
	case mqtt.TopicNodeAttribute:
		return t.applyNodeAttribute(topic, payload)
	case mqtt.TopicPropertyAttribute:
		return t.applyPropertyAttribute(topic, payload)
	case mqtt.TopicPropertyValue:
		return t.applyPropertyValue(topic, payload), nil
	}
	return nil, nil
}

func (t *Tree) applyDeviceAttribute(topic mqtt.ParsedHomieTopic, payload string) ([]domain.HomieEvent, error) {
	d := t.device(topic.DeviceId)
	switch topic.Attribute {
	case "homie":
		if payload == "" {
			// an empty retained $homie clears the device
			delete(t.devices, topic.DeviceId)
			return []domain.HomieEvent{deviceUpdated(d.Id, false)}, nil
		}
		d.Homie = payload
	case "name":
		d.Name = payload
	case "state":
		state, ok := domain.ParseState(payload)
		if !ok {
			return nil, fmt.Errorf("invalid device state %q", payload)
		}
		d.State = state
	case "nodes":
		d.NodeIds = splitList(payload)
		for id := range d.Nodes {
			if !contains(d.NodeIds, id) {
				delete(d.Nodes, id)
			}
		}
	case "implementation":
		d.Implemented = payload
	default:
		return nil, nil
	}
	t.devices[d.Id] = d
	return []domain.HomieEvent{deviceUpdated(d.Id, d.HasRequiredAttributes())}, nil
}

func (t *Tree) applyNodeAttribute(topic mqtt.ParsedHomieTopic, payload string) ([]domain.HomieEvent, error) {
	d := t.device(topic.DeviceId)
	if !listed(d.NodeIds, topic.NodeId) {
		return nil, nil
	}
	n := node(d, topic.NodeId)
	switch topic.Attribute {
	case "name":
		n.Name = payload
	case "type":
		n.Type = payload
	case "properties":
		n.PropertyIds = splitList(payload)
		for id := range n.Properties {
			if !contains(n.PropertyIds, id) {
				delete(n.Properties, id)
			}
		}
	default:
		return nil, nil
	}
	d.Nodes[n.Id] = n
	t.devices[d.Id] = d
	return []domain.HomieEvent{domain.NodeUpdated{
		HomieEventMixIn:       domain.HomieEventMixIn{DeviceId: d.Id},
		NodeId:                n.Id,
		HasRequiredAttributes: n.HasRequiredAttributes(),
	}}, nil
}

func (t *Tree) applyPropertyAttribute(topic mqtt.ParsedHomieTopic, payload string) ([]domain.HomieEvent, error) {
	d := t.device(topic.DeviceId)
	if !listed(d.NodeIds, topic.NodeId) {
		return nil, nil
	}
	n := node(d, topic.NodeId)
	if !listed(n.PropertyIds, topic.PropertyId) {
		return nil, nil
	}
	p := property(n, topic.PropertyId)
	switch topic.Attribute {
	case "name":
		p.Name = payload
	case "datatype":
		datatype, ok := domain.ParseDatatype(payload)
		if !ok {
			return nil, fmt.Errorf("invalid datatype %q", payload)
		}
		p.Datatype = datatype
	case "format":
		p.Format = payload
	case "unit":
		p.Unit = payload
	case "settable":
		v, ok := codec.ParseBool(payload)
		if !ok {
			return nil, fmt.Errorf("invalid $settable %q", payload)
		}
		p.Settable = v
	case "retained":
		v, ok := codec.ParseBool(payload)
		if !ok {
			return nil, fmt.Errorf("invalid $retained %q", payload)
		}
		p.Retained = v
	default:
		return nil, nil
	}
	n.Properties[p.Id] = p
	d.Nodes[n.Id] = n
	t.devices[d.Id] = d
	return []domain.HomieEvent{domain.PropertyUpdated{
		HomieEventMixIn:       domain.HomieEventMixIn{DeviceId: d.Id},
		NodeId:                n.Id,
		PropertyId:            p.Id,
		HasRequiredAttributes: p.HasRequiredAttributes(),
	}}, nil
}

func (t *Tree) applyPropertyValue(topic mqtt.ParsedHomieTopic, payload string) []domain.HomieEvent {
	d := t.device(topic.DeviceId)
	if !listed(d.NodeIds, topic.NodeId) {
		return nil
	}
	n := node(d, topic.NodeId)
	if !listed(n.PropertyIds, topic.PropertyId) {
		return nil
	}
	p := property(n, topic.PropertyId)
	previous, published := p.RawValue()
	fresh := !published || previous != payload
	value := payload
	p.Value = &value
	n.Properties[p.Id] = p
	d.Nodes[n.Id] = n
	t.devices[d.Id] = d
	return []domain.HomieEvent{domain.PropertyValueChanged{
		HomieEventMixIn: domain.HomieEventMixIn{DeviceId: d.Id},
		NodeId:          n.Id,
		PropertyId:      p.Id,
		Value:           payload,
		Fresh:           fresh,
	}}
}

func (t *Tree) device(id string) domain.Device {
	d, ok := t.devices[id]
	if !ok {
		d = domain.Device{Id: id}
	}
	if d.Nodes == nil {
		d.Nodes = map[string]domain.Node{}
	}
	return d
}

func node(d domain.Device, id string) domain.Node {
	n, ok := d.Nodes[id]
	if !ok {
		n = domain.Node{Id: id}
	}
	if n.Properties == nil {
		n.Properties = map[string]domain.Property{}
	}
	return n
}

func property(n domain.Node, id string) domain.Property {
	p, ok := n.Properties[id]
	if !ok {
		p = domain.Property{Id: id, Retained: true}
	}
	return p
}

func deviceUpdated(id string, required bool) domain.DeviceUpdated {
	return domain.DeviceUpdated{
		HomieEventMixIn:       domain.HomieEventMixIn{DeviceId: id},
		HasRequiredAttributes: required,
	}
}

func splitList(payload string) []string {
	out := []string{}
	for _, s := range strings.Split(payload, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// listed reports whether id may be tracked under a parent whose child list
// is list. A nil list has not been published yet and accepts every child.
func listed(list []string, id string) bool {
	return list == nil || contains(list, id)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
