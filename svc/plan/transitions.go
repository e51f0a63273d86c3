package plan

import "github.com/swarmdock/backend/pkg/statemachine"

type event string

const (
	eventActivate event = "activate"
	eventCancel   event = "cancel"
)

var transitions = statemachine.MustNew(
	statemachine.Transition[Status, event]{From: StatusPendingPayment, Event: eventActivate, To: StatusActive},
	statemachine.Transition[Status, event]{From: StatusPendingPayment, Event: eventCancel, To: StatusCancelled},
	statemachine.Transition[Status, event]{From: StatusActive, Event: eventCancel, To: StatusCancelled},
)
