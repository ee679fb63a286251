package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscriptionOrderRef(t *testing.T) {
	ref, err := ParseOrderRef("sub:42:mail_combo:30", false)
	require.NoError(t, err)
	assert.Equal(t, OrderKindSubscription, ref.Kind)
	assert.Equal(t, int64(42), ref.UserID)
	assert.Equal(t, "mail_combo", ref.Category)
	assert.Equal(t, 30, ref.PlanDays)
	assert.Equal(t, "sub:42:mail_combo:30", ref.String())
}

func TestParsePackageOrderRef(t *testing.T) {
	ref, err := ParseOrderRef("pl:42:10k", false)
	require.NoError(t, err)
	assert.Equal(t, OrderKindPackage, ref.Kind)
	assert.Equal(t, int64(42), ref.UserID)
	assert.Equal(t, "10k", ref.PackageCode)
	assert.Equal(t, "pl:42:10k", ref.String())
}

func TestParseLegacyOrderRefGated(t *testing.T) {
	_, err := ParseOrderRef("sub:42:30", false)
	assert.ErrorIs(t, err, ErrBadOrderRef)

	ref, err := ParseOrderRef("sub:42:30", true)
	require.NoError(t, err)
	assert.Equal(t, OrderKindSubscription, ref.Kind)
	assert.Equal(t, int64(42), ref.UserID)
	assert.Equal(t, "", ref.Category)
	assert.Equal(t, 30, ref.PlanDays)
}

func TestParseMalformedOrderRefs(t *testing.T) {
	for _, raw := range []string{
		"",
		"sub",
		"sub:",
		"sub:abc:mail_combo:30",
		"sub:42:mail_combo:zero",
		"sub:42:mail_combo:-1",
		"sub:0:mail_combo:30",
		"sub:42:mail_combo:30:extra",
		"sub:42::30",
		"pl:42",
		"pl:42:",
		"pl:abc:10k",
		"gift:42:10k",
		"bogus-order",
	} {
		_, err := ParseOrderRef(raw, true)
		assert.ErrorIs(t, err, ErrBadOrderRef, "input %q", raw)
	}
}
