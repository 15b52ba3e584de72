package akv

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRefSettings() RefSettings {
	return RefSettings{Ceiling: 0.35, LvlOne: 0.06, LvlTwo: 0.04, LvlThree: 0.02}
}

func TestPlanCommissionDefaultTiers(t *testing.T) {
	gross := decimal.NewFromInt(1000)
	upline := []UplineRecipient{
		{UserId: 1, Level: 1, Active: true},
		{UserId: 2, Level: 2, Active: true},
		{UserId: 3, Level: 3, Active: true},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	require.NoError(t, err)

	require.Len(t, plan.Shares, 3)
	assert.True(t, plan.Shares[0].Amount.Equal(decimal.NewFromInt(60)))
	assert.True(t, plan.Shares[1].Amount.Equal(decimal.NewFromInt(40)))
	assert.True(t, plan.Shares[2].Amount.Equal(decimal.NewFromInt(20)))
	assert.True(t, plan.Platform.Equal(decimal.NewFromInt(230)))
	assert.True(t, plan.Retained.Equal(decimal.NewFromInt(650)))
}

func TestPlanCommissionVIPOverride(t *testing.T) {
	gross := decimal.NewFromInt(100)
	upline := []UplineRecipient{
		{UserId: 7, Level: 1, Active: true, VIP: true, VIPPercent: decimal.NewFromInt(10)},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	require.NoError(t, err)

	require.Len(t, plan.Shares, 1)
	assert.True(t, plan.Shares[0].Amount.Equal(decimal.NewFromInt(10)))
	assert.True(t, plan.Platform.Equal(decimal.NewFromInt(25)))
	assert.True(t, plan.Retained.Equal(decimal.NewFromInt(65)))
}

func TestPlanCommissionDeepVIP(t *testing.T) {
	gross := decimal.NewFromInt(1000)
	upline := []UplineRecipient{
		{UserId: 1, Level: 1, Active: true},
		{UserId: 2, Level: 2, Active: true},
		{UserId: 3, Level: 3, Active: true, VIP: true},
		{UserId: 4, Level: 4, Active: true, VIP: true, VIPPercent: decimal.NewFromInt(5)},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	require.NoError(t, err)

	require.Len(t, plan.Shares, 4)
	// VIP without a personal percent falls back to the tier rate
	assert.True(t, plan.Shares[2].Amount.Equal(decimal.NewFromInt(20)))
	// past the tiers only the personal percent pays
	assert.True(t, plan.Shares[3].Amount.Equal(decimal.NewFromInt(50)))
}

func TestPlanCommissionFourthLevelVIPOnly(t *testing.T) {
	gross := decimal.NewFromInt(100)
	upline := []UplineRecipient{
		{UserId: 1, Level: 1, Active: true},
		{UserId: 2, Level: 2, Active: true},
		{UserId: 3, Level: 3, Active: true},
		{UserId: 4, Level: 4, Active: true},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	require.NoError(t, err)

	// the tiers pay everyone, the fourth level pays VIPs only
	require.Len(t, plan.Shares, 3)
	for _, share := range plan.Shares {
		assert.NotEqual(t, uint(4), share.UserId)
	}
}

func TestPlanCommissionCeilingBreach(t *testing.T) {
	gross := decimal.NewFromInt(100)
	upline := []UplineRecipient{
		{UserId: 1, Level: 1, Active: true, VIP: true, VIPPercent: decimal.NewFromInt(20)},
		{UserId: 2, Level: 2, Active: true, VIP: true, VIPPercent: decimal.NewFromInt(20)},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	assert.ErrorIs(t, err, ErrCommissionCeiling)
	assert.Nil(t, plan)
}

func TestPlanCommissionExactCeiling(t *testing.T) {
	gross := decimal.NewFromInt(100)
	upline := []UplineRecipient{
		{UserId: 1, Level: 1, Active: true, VIP: true, VIPPercent: decimal.NewFromInt(35)},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	require.NoError(t, err)
	require.Len(t, plan.Shares, 1)
	assert.True(t, plan.Shares[0].Amount.Equal(decimal.NewFromInt(35)))
	assert.True(t, plan.Platform.IsZero())
	assert.True(t, plan.Retained.Equal(decimal.NewFromInt(65)))
}

func TestPlanCommissionSkipsInactive(t *testing.T) {
	gross := decimal.NewFromInt(100)
	upline := []UplineRecipient{
		{UserId: 1, Level: 1, Active: false},
		{UserId: 2, Level: 2, Active: true},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	require.NoError(t, err)

	require.Len(t, plan.Shares, 1)
	assert.Equal(t, uint(2), plan.Shares[0].UserId)
	assert.True(t, plan.Shares[0].Amount.Equal(decimal.NewFromInt(4)))
	// the untaken share stays with the platform
	assert.True(t, plan.Platform.Equal(decimal.NewFromInt(31)))
}

func TestPlanCommissionLevelCap(t *testing.T) {
	gross := decimal.NewFromInt(100)
	upline := []UplineRecipient{
		{UserId: 1, Level: 1, Active: true},
		{UserId: 2, Level: 2, Active: true},
		{UserId: 3, Level: 3, Active: true, VIP: true},
		{UserId: 4, Level: 4, Active: true, VIP: true, VIPPercent: decimal.NewFromInt(2)},
		{UserId: 5, Level: 5, Active: true, VIP: true, VIPPercent: decimal.NewFromInt(2)},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	require.NoError(t, err)
	require.Len(t, plan.Shares, 4)
	for _, share := range plan.Shares {
		assert.NotEqual(t, uint(5), share.UserId)
	}
}

func TestCommissionPlanQuantize(t *testing.T) {
	gross := decimal.RequireFromString("100.123")
	upline := []UplineRecipient{
		{UserId: 1, Level: 1, Active: true},
	}

	plan, err := PlanCommission(gross, upline, testRefSettings())
	require.NoError(t, err)

	plan.Quantize(gross, testRefSettings(), 2)

	// 100.123 * 0.06 = 6.00738 rounds to the wallet scale
	assert.True(t, plan.Shares[0].Amount.Equal(decimal.RequireFromString("6.01")))

	// the rounded split still sums to the rounded ceiling cut
	ceilingCut := decimal.RequireFromString("35.04")
	assert.True(t, plan.Shares[0].Amount.Add(plan.Platform).Equal(ceilingCut))
	assert.True(t, plan.Retained.Equal(gross.Sub(ceilingCut)))
}

func TestPlanCommissionRejectsNonPositiveGross(t *testing.T) {
	_, err := PlanCommission(decimal.Zero, nil, testRefSettings())
	assert.ErrorIs(t, err, ErrBadAmount)
}
