package homie

import (
	"testing"

	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/mqtt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parser = mqtt.NewHomieTopicParser("homie")

func apply(t *testing.T, tree *Tree, topic, payload string) []domain.HomieEvent {
	events, err := tree.Apply(parser.Parse(topic), payload)
	require.NoError(t, err, topic)
	return events
}

func publishLamp(t *testing.T, tree *Tree) {
	apply(t, tree, "homie/lamp/$homie", "4.0")
	apply(t, tree, "homie/lamp/$name", "Lamp")
	apply(t, tree, "homie/lamp/$nodes", "light")
	apply(t, tree, "homie/lamp/light/$name", "Light")
	apply(t, tree, "homie/lamp/light/$properties", "on,brightness")
	apply(t, tree, "homie/lamp/light/on/$name", "On")
	apply(t, tree, "homie/lamp/light/on/$datatype", "boolean")
	apply(t, tree, "homie/lamp/light/on/$settable", "true")
	apply(t, tree, "homie/lamp/light/on", "true")
	apply(t, tree, "homie/lamp/light/brightness/$name", "Brightness")
	apply(t, tree, "homie/lamp/light/brightness/$datatype", "integer")
	apply(t, tree, "homie/lamp/light/brightness/$format", "0:255")
	apply(t, tree, "homie/lamp/light/brightness", "128")
	apply(t, tree, "homie/lamp/$state", "ready")
}

func TestTreeBuildsDevice(t *testing.T) {

	assert := assert.New(t)

	tree := NewTree()
	publishLamp(t, tree)

	devices := tree.Devices()
	require.Contains(t, devices, "lamp")
	lamp := devices["lamp"]
	assert.Equal("Lamp", lamp.Name)
	assert.Equal(domain.StateReady, lamp.State)
	assert.True(lamp.HasRequiredAttributes())
	assert.Equal([]string{"light"}, lamp.NodeIds)

	light := lamp.Nodes["light"]
	assert.True(light.HasRequiredAttributes())
	on := light.Properties["on"]
	assert.Equal(domain.DatatypeBoolean, on.Datatype)
	assert.True(on.Settable)
	raw, ok := on.RawValue()
	assert.True(ok)
	assert.Equal("true", raw)
	assert.Equal("0:255", light.Properties["brightness"].Format)
}

func TestTreeEvents(t *testing.T) {

	assert := assert.New(t)

	tree := NewTree()

	events := apply(t, tree, "homie/lamp/$homie", "4.0")
	assert.Equal([]domain.HomieEvent{domain.DeviceUpdated{HomieEventMixIn: domain.HomieEventMixIn{DeviceId: "lamp"}}}, events)

	apply(t, tree, "homie/lamp/$name", "Lamp")
	events = apply(t, tree, "homie/lamp/$state", "init")
	assert.True(domain.Structural(events[0]))

	events = apply(t, tree, "homie/lamp/light/$name", "Light")
	assert.False(domain.Structural(events[0]), "node without $properties")
	events = apply(t, tree, "homie/lamp/light/$properties", "on")
	assert.Equal(domain.NodeUpdated{HomieEventMixIn: domain.HomieEventMixIn{DeviceId: "lamp"}, NodeId: "light",
		HasRequiredAttributes: true}, events[0])

	events = apply(t, tree, "homie/lamp/light/on/$name", "On")
	assert.False(domain.Structural(events[0]))
	events = apply(t, tree, "homie/lamp/light/on/$datatype", "boolean")
	assert.True(domain.Structural(events[0]))

	// unknown attributes produce no event
	assert.Empty(apply(t, tree, "homie/lamp/$extensions", "org.homie.legacy-stats:0.1.1:[4.x]"))
}

func TestTreeFreshness(t *testing.T) {

	assert := assert.New(t)

	tree := NewTree()
	publishLamp(t, tree)

	events := apply(t, tree, "homie/lamp/light/on", "false")
	assert.Equal(domain.PropertyValueChanged{HomieEventMixIn: domain.HomieEventMixIn{DeviceId: "lamp"},
		NodeId: "light", PropertyId: "on", Value: "false", Fresh: true}, events[0])

	events = apply(t, tree, "homie/lamp/light/on", "false")
	assert.False(events[0].(domain.PropertyValueChanged).Fresh)

	events = apply(t, tree, "homie/sensor/env/temp", "20")
	assert.True(events[0].(domain.PropertyValueChanged).Fresh, "first value is fresh")
}

func TestTreeRejectsMalformedPayloads(t *testing.T) {

	assert := assert.New(t)

	tree := NewTree()
	publishLamp(t, tree)

	_, err := tree.Apply(parser.Parse("homie/lamp/$state"), "zombie")
	assert.Error(err)
	_, err = tree.Apply(parser.Parse("homie/lamp/light/on/$datatype"), "bool")
	assert.Error(err)
	_, err = tree.Apply(parser.Parse("homie/lamp/light/on/$settable"), "yes")
	assert.Error(err)

	lamp := tree.Devices()["lamp"]
	assert.Equal(domain.StateReady, lamp.State, "tree untouched")
	assert.Equal(domain.DatatypeBoolean, lamp.Nodes["light"].Properties["on"].Datatype)
}

func TestTreePrunesUnlistedChildren(t *testing.T) {

	assert := assert.New(t)

	tree := NewTree()
	publishLamp(t, tree)

	apply(t, tree, "homie/lamp/light/$properties", "on")
	_, ok := tree.Devices()["lamp"].Nodes["light"].Properties["brightness"]
	assert.False(ok)

	apply(t, tree, "homie/lamp/$nodes", "")
	assert.Empty(tree.Devices()["lamp"].Nodes)

	events := apply(t, tree, "homie/lamp/$homie", "")
	assert.False(domain.Structural(events[0]))
	assert.NotContains(tree.Devices(), "lamp")
}

func TestTreeIgnoresUnlistedChildren(t *testing.T) {

	assert := assert.New(t)

	tree := NewTree()
	publishLamp(t, tree)

	// stale retained messages of a node the device no longer announces
	assert.Empty(apply(t, tree, "homie/lamp/old/$name", "Old"))
	assert.Empty(apply(t, tree, "homie/lamp/old/$properties", "on"))
	assert.Empty(apply(t, tree, "homie/lamp/old/on/$name", "On"))
	assert.Empty(apply(t, tree, "homie/lamp/old/on/$datatype", "boolean"))
	assert.Empty(apply(t, tree, "homie/lamp/old/on", "true"))

	// and of a property the node no longer announces
	apply(t, tree, "homie/lamp/light/$properties", "on")
	assert.Empty(apply(t, tree, "homie/lamp/light/brightness/$name", "Brightness"))
	assert.Empty(apply(t, tree, "homie/lamp/light/brightness/$datatype", "integer"))
	assert.Empty(apply(t, tree, "homie/lamp/light/brightness", "200"))

	lamp := tree.Devices()["lamp"]
	assert.Equal([]string{"light"}, lamp.NodeIds)
	assert.Len(lamp.Nodes, 1)
	assert.NotContains(lamp.Nodes["light"].Properties, "brightness")
	_, _, ok := tree.Node("lamp", "old")
	assert.False(ok)

	// children announced later are tracked again
	apply(t, tree, "homie/lamp/$nodes", "light,old")
	events := apply(t, tree, "homie/lamp/old/$name", "Old")
	require.Len(t, events, 1)
	assert.Equal("old", events[0].(domain.NodeUpdated).NodeId)
}

func TestTreeSnapshotsAreCopies(t *testing.T) {

	tree := NewTree()
	publishLamp(t, tree)

	snapshot := tree.Devices()
	apply(t, tree, "homie/lamp/light/on", "false")
	apply(t, tree, "homie/lamp/$state", "lost")

	raw, _ := snapshot["lamp"].Nodes["light"].Properties["on"].RawValue()
	assert.Equal(t, "true", raw)
	assert.Equal(t, domain.StateReady, snapshot["lamp"].State)

	d, n, ok := tree.Node("lamp", "light")
	require.True(t, ok)
	assert.Equal(t, domain.StateLost, d.State)
	raw, _ = n.Properties["on"].RawValue()
	assert.Equal(t, "false", raw)

	_, _, ok = tree.Node("lamp", "nope")
	assert.False(t, ok)
}
