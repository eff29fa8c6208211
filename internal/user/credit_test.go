package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rajivgeraev/campus-market/internal/models"
)

func TestCredit(t *testing.T) {
	tests := []struct {
		score int
		want  CreditStatus
	}{
		{100, CreditGood},
		{80, CreditGood},
		{79, CreditFair},
		{60, CreditFair},
		{59, CreditPoor},
		{0, CreditPoor},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Credit(tt.score), "score %d", tt.score)
	}
	assert.Equal(t, "信用良好", CreditGood.Label())
}

func TestBanned(t *testing.T) {
	assert.False(t, Banned(nil, DefaultBanThreshold))
	assert.False(t, Banned(&models.UserProfile{CreditScore: 60}, DefaultBanThreshold))
	assert.True(t, Banned(&models.UserProfile{CreditScore: 59}, DefaultBanThreshold))
	assert.True(t, Banned(&models.UserProfile{CreditScore: 70}, 75))
}
