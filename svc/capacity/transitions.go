package capacity

import (
	"github.com/swarmdock/backend/pkg/statemachine"
	"github.com/swarmdock/backend/svc/organization"
)

type event string

const (
	eventPurchase     event = "purchase"
	eventCreated      event = "created"
	eventCreateFailed event = "create_failed"
	eventRenewed      event = "renewed"
	eventTopUpFailed  event = "top_up_failed"
	eventDiluteFailed event = "dilute_failed"
	eventRelease      event = "release"
)

// never provisioned
const statusNone organization.BatchStatus = ""

type transition = statemachine.Transition[organization.BatchStatus, event]

var transitions = statemachine.MustNew(
	transition{From: statusNone, Event: eventPurchase, To: organization.BatchCreating},
	transition{From: organization.BatchFailedToCreate, Event: eventPurchase, To: organization.BatchCreating},
	transition{From: organization.BatchRemoved, Event: eventPurchase, To: organization.BatchCreating},

	transition{From: organization.BatchCreating, Event: eventCreated, To: organization.BatchCreated},
	transition{From: organization.BatchCreating, Event: eventCreateFailed, To: organization.BatchFailedToCreate},

	transition{From: organization.BatchCreated, Event: eventRenewed, To: organization.BatchCreated},
	transition{From: organization.BatchFailedToTopUp, Event: eventRenewed, To: organization.BatchCreated},
	transition{From: organization.BatchFailedToDilute, Event: eventRenewed, To: organization.BatchCreated},
	transition{From: organization.BatchCreated, Event: eventTopUpFailed, To: organization.BatchFailedToTopUp},
	transition{From: organization.BatchFailedToTopUp, Event: eventTopUpFailed, To: organization.BatchFailedToTopUp},
	transition{From: organization.BatchFailedToDilute, Event: eventTopUpFailed, To: organization.BatchFailedToTopUp},
	transition{From: organization.BatchCreated, Event: eventDiluteFailed, To: organization.BatchFailedToDilute},
	transition{From: organization.BatchFailedToTopUp, Event: eventDiluteFailed, To: organization.BatchFailedToDilute},
	transition{From: organization.BatchFailedToDilute, Event: eventDiluteFailed, To: organization.BatchFailedToDilute},

	transition{From: organization.BatchCreated, Event: eventRelease, To: organization.BatchRemoved},
	transition{From: organization.BatchFailedToCreate, Event: eventRelease, To: organization.BatchRemoved},
	transition{From: organization.BatchFailedToTopUp, Event: eventRelease, To: organization.BatchRemoved},
	transition{From: organization.BatchFailedToDilute, Event: eventRelease, To: organization.BatchRemoved},
)
