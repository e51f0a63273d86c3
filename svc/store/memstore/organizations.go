package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/svc/organization"
)

type Organizations struct{ db *DB }

var _ organization.Store = (*Organizations)(nil)

func (s *Organizations) Create(_ context.Context, org *organization.Organization) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.orgs[org.ID] = cloneOrg(*org)
	return nil
}

func (s *Organizations) Get(_ context.Context, id uuid.UUID) (*organization.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	org, ok := s.db.orgs[id]
	if !ok {
		return nil, organization.ErrNotFound
	}
	return ptr(cloneOrg(org)), nil
}

func (s *Organizations) UpdateBatch(_ context.Context, id uuid.UUID, upd organization.BatchUpdate) (*organization.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	org, ok := s.db.orgs[id]
	if !ok {
		return nil, organization.ErrNotFound
	}
	switch {
	case upd.ClearBatch:
		org.PostageBatchID = nil
	case upd.BatchID != nil:
		org.PostageBatchID = ptr(*upd.BatchID)
	}
	if upd.Status != nil {
		org.PostageBatchStatus = ptr(*upd.Status)
	}
	org.UpdatedAt = time.Now().UTC()
	s.db.orgs[id] = org
	return ptr(cloneOrg(org)), nil
}

func (s *Organizations) ListWithBatch(_ context.Context) ([]organization.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []organization.Organization
	for _, org := range s.db.orgs {
		if org.PostageBatchID != nil {
			out = append(out, cloneOrg(org))
		}
	}
	return out, nil
}

func cloneOrg(o organization.Organization) organization.Organization {
	if o.PostageBatchID != nil {
		o.PostageBatchID = ptr(*o.PostageBatchID)
	}
	if o.PostageBatchStatus != nil {
		o.PostageBatchStatus = ptr(*o.PostageBatchStatus)
	}
	return o
}
