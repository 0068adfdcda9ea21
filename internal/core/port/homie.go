package port

import (
	"context"
	"time"

	"github.com/berfenger/homie2google/internal/core/domain"
)

// DeviceTree gives read access to the live device tree of one user.
type DeviceTree interface {
	Devices() domain.Devices
	Node(deviceId, nodeId string) (domain.Device, domain.Node, bool)
}

// PropertySetter writes a new value for a property to the bus.
type PropertySetter interface {
	Set(ctx context.Context, deviceId, nodeId, propertyId, value string) error
}

// Home is what fulfillment needs from a user's bus connection.
type Home interface {
	DeviceTree
	PropertySetter
}

// HomieController is the bus connection of one user. Connection methods are
// asynchronous and report through the continuation.
type HomieController interface {
	Home
	BaseTopic() string
	Connect(continuation func(error), timeout time.Duration)
	Subscribe(continuation func(error), timeout time.Duration)
	Disconnect()
	OnEvent(handler func(domain.HomieEvent))
	OnError(handler func(error))
}
