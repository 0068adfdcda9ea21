package actorutil

import (
	"github.com/berfenger/homie2google/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

type forRequest struct {
	req domain.ActorRequest
}

type ExtendedRequest interface {
	Respond(ctx actor.Context, resp domain.ActorResponse)
}

func ForRequest(r domain.ActorRequest) ExtendedRequest {
	return forRequest{req: r}
}

// Respond answers to the explicit ReplyTo if set, to the sender otherwise.
// Requests sent with Send have no sender and get no response.
func (r forRequest) Respond(ctx actor.Context, resp domain.ActorResponse) {
	if r.req.ReplyTo() != nil {
		ctx.Send((*actor.PID)(r.req.ReplyTo()), resp)
	} else if ctx.Sender() != nil {
		ctx.Respond(resp)
	}
}

// SendFromOutside returns a function that delivers messages to the actor from
// goroutines that must not touch the actor.Context, such as MQTT callbacks.
func SendFromOutside(ctx actor.Context) func(msg any) {
	root := ctx.ActorSystem().Root
	self := ctx.Self()
	return func(msg any) {
		root.Send(self, msg)
	}
}
