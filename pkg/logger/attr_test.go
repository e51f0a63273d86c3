package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmdock/backend/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	t.Parallel()
	id := uuid.New()

	tests := []struct {
		name string
		attr slog.Attr
		key  string
	}{
		{"organization", logger.OrganizationID(id), "organization_id"},
		{"plan", logger.PlanID(id), "plan_id"},
		{"batch", logger.BatchID("abc"), "batch_id"},
		{"depth", logger.Depth(22), "depth"},
		{"amount", logger.Amount("414720000"), "amount"},
		{"provider", logger.Provider("stripe"), "provider"},
		{"merchant tx", logger.MerchantTransactionID("tx"), "merchant_transaction_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.key, tt.attr.Key)
		})
	}

	assert.True(t, logger.BatchID("").Equal(slog.Attr{}))
	assert.True(t, logger.OrganizationID(nil).Equal(slog.Attr{}))
}
