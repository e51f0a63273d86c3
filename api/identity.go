package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/swarmdock/backend/pkg/handler"
	"github.com/swarmdock/backend/pkg/validator"
)

// Headers set by the gateway for authenticated callers.
const (
	HeaderOrganizationID = "X-Organization-Id"
	HeaderUserEmail      = "X-User-Email"
)

var identityKey = handler.NewContextKey("identity")

// Identity is the caller as asserted by the gateway.
type Identity struct {
	OrganizationID uuid.UUID
	Email          string
}

func identityFrom(ctx handler.Context) Identity {
	return handler.ContextValue[Identity](ctx, identityKey)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawOrg := strings.TrimSpace(r.Header.Get(HeaderOrganizationID))
		email := strings.TrimSpace(r.Header.Get(HeaderUserEmail))

		rules := []validator.Rule{validator.ValidUUID("organizationId", rawOrg)}
		if email != "" {
			rules = append(rules, validator.ValidEmail("email", email))
		}
		if err := validator.Apply(rules...); err != nil {
			s.logger.DebugContext(r.Context(), "rejected caller identity", "reason", err.Error())
			s.fail(w, r, handler.ErrUnauthorized)
			return
		}

		id := Identity{OrganizationID: uuid.MustParse(rawOrg), Email: email}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// organizationKey buckets rate limits by the authenticated organization.
func organizationKey(r *http.Request) string {
	id, ok := handler.ContextValueOK[Identity](r.Context(), identityKey)
	if !ok {
		return ""
	}
	return id.OrganizationID.String()
}
