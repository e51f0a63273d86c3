// Package memstore implements every repository in memory. Conditional
// writes hold one mutex, so they behave like the Postgres versions.
package memstore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/svc/billing"
	"github.com/swarmdock/backend/svc/organization"
	"github.com/swarmdock/backend/svc/plan"
	"github.com/swarmdock/backend/svc/usage"
)

// DB holds all entities behind a single lock.
type DB struct {
	mu            sync.Mutex
	orgs          map[uuid.UUID]organization.Organization
	plans         map[uuid.UUID]plan.Plan
	payments      map[uuid.UUID]billing.Payment
	paymentsByTx  map[string]uuid.UUID
	notifications []billing.Notification
	metrics       map[usage.Key]usage.Metric
}

func New() *DB {
	return &DB{
		orgs:         make(map[uuid.UUID]organization.Organization),
		plans:        make(map[uuid.UUID]plan.Plan),
		payments:     make(map[uuid.UUID]billing.Payment),
		paymentsByTx: make(map[string]uuid.UUID),
		metrics:      make(map[usage.Key]usage.Metric),
	}
}

func (db *DB) Organizations() *Organizations { return &Organizations{db: db} }
func (db *DB) Plans() *Plans                 { return &Plans{db: db} }
func (db *DB) Payments() *Payments           { return &Payments{db: db} }
func (db *DB) Notifications() *Notifications { return &Notifications{db: db} }
func (db *DB) Usage() *Usage                 { return &Usage{db: db} }

func ptr[T any](v T) *T { return &v }
