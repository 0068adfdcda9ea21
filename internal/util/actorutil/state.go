package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorWithStates is a behavior whose states carry a name.
type ActorWithStates struct {
	Behavior actor.Behavior
	current  ActorState
}

type ActorState interface {
	Name() string
	Receive(actor.Context)
}

func NewActorWithStates(initial ActorState) ActorWithStates {
	s := ActorWithStates{Behavior: actor.NewBehavior()}
	s.Become(initial)
	return s
}

func (s *ActorWithStates) Become(state ActorState) {
	s.current = state
	s.Behavior.Become(state.Receive)
}

// StateName is the name of the current state, used for logs and health.
func (s *ActorWithStates) StateName() string {
	if s.current == nil {
		return ""
	}
	return s.current.Name()
}
