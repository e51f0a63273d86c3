package validator_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmdock/backend/pkg/validator"
)

func TestRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rule  validator.Rule
		valid bool
	}{
		{"required set", validator.RequiredNum("storage", 4), true},
		{"required zero", validator.RequiredNum("storage", 0), false},
		{"min ok", validator.MinNum("storage", 4, 1), true},
		{"min below", validator.MinNum("storage", 0, 1), false},
		{"max ok", validator.MaxNum("bandwidth", 128, 1024), true},
		{"max above", validator.MaxNum("bandwidth", 2048, 1024), false},
		{"one of", validator.OneOf("storage", 64, []int{4, 64}), true},
		{"not one of", validator.OneOf("storage", 5, []int{4, 64}), false},
		{"email", validator.ValidEmail("email", "ops@example.com"), true},
		{"email with name", validator.ValidEmail("email", "Ops <ops@example.com>"), false},
		{"email without dot", validator.ValidEmail("email", "ops@localhost"), false},
		{"email empty label", validator.ValidEmail("email", "ops@example..com"), false},
		{"uuid", validator.ValidUUID("organizationId", uuid.NewString()), true},
		{"uuid without hyphens", validator.ValidUUID("organizationId", "6ba7b8109dad11d180b400c04fd430c8"), false},
		{"uuid garbage", validator.ValidUUID("organizationId", "not-a-uuid"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, tt.rule.Check())
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	require.NoError(t, validator.Apply(validator.MinNum("storage", 4, 1)))

	err := validator.Apply(
		validator.MinNum("storage", 0, 1),
		validator.MinNum("bandwidth", 0, 1),
		validator.MaxNum("bandwidth", 0, 10),
		validator.ValidEmail("email", "nope"),
	)
	require.Error(t, err)

	verrs := validator.ExtractValidationErrors(err)
	require.Len(t, verrs, 3)
	assert.True(t, verrs.Has("storage"))
	assert.False(t, verrs.Has("tier"))
	assert.Equal(t, map[string][]string{
		"storage":   {"must be at least 1"},
		"bandwidth": {"must be at least 1"},
		"email":     {"must be a valid email address"},
	}, verrs.ByField())
	assert.Equal(t, "validation failed: storage: must be at least 1; bandwidth: must be at least 1; email: must be a valid email address", err.Error())

	assert.Nil(t, validator.ExtractValidationErrors(nil))
}
