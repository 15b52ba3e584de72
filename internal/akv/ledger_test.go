package akv

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheckWithdrawal(t *testing.T) {
	commission := decimal.NewFromInt(1)
	reserve := decimal.NewFromInt(10000)

	err := CheckWithdrawal(decimal.NewFromInt(100), decimal.Zero, reserve, decimal.Zero, commission)
	assert.ErrorIs(t, err, ErrBadAmount)

	// the held part of the balance is never touchable
	err = CheckWithdrawal(decimal.NewFromInt(100), decimal.NewFromInt(60), reserve,
		decimal.NewFromInt(40), commission)
	assert.ErrorIs(t, err, ErrHoldLocked)

	// exactly hold + amount + commission passes
	err = CheckWithdrawal(decimal.NewFromInt(101), decimal.NewFromInt(60), reserve,
		decimal.NewFromInt(40), commission)
	assert.NoError(t, err)

	err = CheckWithdrawal(decimal.NewFromInt(101), decimal.NewFromInt(60), decimal.NewFromInt(39),
		decimal.NewFromInt(40), commission)
	assert.ErrorIs(t, err, ErrInsufficientReserve)
}

func TestPlanParticipationDebit(t *testing.T) {
	alloc := decimal.NewFromInt(1000)

	cost, cut, heldCut := PlanParticipationDebit(alloc, decimal.Zero, 0.3)
	assert.True(t, cost.Equal(decimal.NewFromInt(1300)))
	assert.True(t, cut.Equal(decimal.NewFromInt(300)))
	assert.True(t, heldCut.IsZero())

	// a partial hold is consumed whole
	_, _, heldCut = PlanParticipationDebit(alloc, decimal.NewFromInt(400), 0.3)
	assert.True(t, heldCut.Equal(decimal.NewFromInt(400)))

	// the hold consumption is capped at the allocation
	_, _, heldCut = PlanParticipationDebit(alloc, decimal.NewFromInt(1500), 0.3)
	assert.True(t, heldCut.Equal(alloc))
}

func TestRefundCreditMirrorsDebit(t *testing.T) {
	alloc := decimal.NewFromInt(1000)
	cost, cut, _ := PlanParticipationDebit(alloc, decimal.Zero, 0.3)

	// what the refund credits back is exactly what participation took
	assert.True(t, alloc.Add(cut).Equal(cost))
}
