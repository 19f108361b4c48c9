package utils

import (
	"testing"

	"permit-portal-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusCode(t *testing.T) {
	cases := map[string]models.StatusCode{
		"3":                    models.StatusNeedsRevision,
		" 11 ":                 models.StatusInspected,
		"needs_revision":       models.StatusNeedsRevision,
		"Needs Revision":       models.StatusNeedsRevision,
		"payment-failed":       models.StatusPaymentFailed,
		"PAID":                 models.StatusPaymentReceived,
		"inspection_scheduled": models.StatusInspecting,
	}
	for raw, want := range cases {
		got, err := ParseStatusCode(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "  ", "12", "0", "archived"} {
		_, err := ParseStatusCode(raw)
		assert.Error(t, err, raw)
	}
}

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "payment_pending", StatusKey(models.StatusPaymentPending))
	assert.Equal(t, "", StatusKey(models.StatusCode(42)))
	assert.True(t, StatusMatchesCodes(models.StatusApproved, models.StatusRejected, models.StatusApproved))
	assert.False(t, StatusMatchesCodes(models.StatusApproved))
}
