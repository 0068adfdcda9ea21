package domain

type HomieEventMixIn struct {
	DeviceId string
}

// HomieEvent is emitted by the Homie controller after every change it applies
// to the device tree.
type HomieEvent interface {
	homieEvent()
	Device() string
}

func (e HomieEventMixIn) homieEvent() {}

func (e HomieEventMixIn) Device() string {
	return e.DeviceId
}

type DeviceUpdated struct {
	HomieEventMixIn
	HasRequiredAttributes bool
}

type NodeUpdated struct {
	HomieEventMixIn
	NodeId                string
	HasRequiredAttributes bool
}

type PropertyUpdated struct {
	HomieEventMixIn
	NodeId                string
	PropertyId            string
	HasRequiredAttributes bool
}

// PropertyValueChanged is emitted for every value message. Fresh is false when
// the value equals the previously observed one.
type PropertyValueChanged struct {
	HomieEventMixIn
	NodeId     string
	PropertyId string
	Value      string
	Fresh      bool
}

// Structural reports whether the event announces a newly addressable part of
// the tree, which requires a cloud resync.
func Structural(e HomieEvent) bool {
	switch ev := e.(type) {
	case DeviceUpdated:
		return ev.HasRequiredAttributes
	case NodeUpdated:
		return ev.HasRequiredAttributes
	case PropertyUpdated:
		return ev.HasRequiredAttributes
	}
	return false
}

// ensure interface compliance
var (
	_ HomieEvent = DeviceUpdated{}
	_ HomieEvent = NodeUpdated{}
	_ HomieEvent = PropertyUpdated{}
	_ HomieEvent = PropertyValueChanged{}
)
