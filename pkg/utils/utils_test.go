package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "q1-pipeline-review", Slugify("  Q1 Pipeline / Review! "))
	assert.Equal(t, "report", Slugify("***"))
}

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")
	t.Cleanup(func() { SetSecret("secret") })

	token, err := GenerateToken("u1", "org1", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "org1", claims.OrgID)

	SetSecret("other")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateToken_RequiresOrg(t *testing.T) {
	_, err := GenerateToken("u1", "", nil, time.Hour)
	assert.ErrorIs(t, err, ErrMissingOrg)
}
