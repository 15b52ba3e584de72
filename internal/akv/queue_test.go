package akv

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pin(n int) *int { return &n }

func TestPlanQueueNumbersDense(t *testing.T) {
	slots := []QueueSlot{
		{EntryId: 10, Number: 2},
		{EntryId: 11, Number: 5},
		{EntryId: 12, Number: 9},
	}

	plan := PlanQueueNumbers(slots)
	require.Len(t, plan, 3)
	assert.Equal(t, 1, plan[10])
	assert.Equal(t, 2, plan[11])
	assert.Equal(t, 3, plan[12])
}

func TestPlanQueueNumbersKeepsPinned(t *testing.T) {
	slots := []QueueSlot{
		{EntryId: 1, Number: 1},
		{EntryId: 2, Number: 4, Pinned: pin(3)},
		{EntryId: 3, Number: 7},
		{EntryId: 4, Number: 9},
	}

	plan := PlanQueueNumbers(slots)
	assert.Equal(t, 3, plan[2])
	assert.Equal(t, 1, plan[1])
	assert.Equal(t, 2, plan[3])
	assert.Equal(t, 4, plan[4])
}

func TestPlanQueueNumbersPinnedOutOfRange(t *testing.T) {
	slots := []QueueSlot{
		{EntryId: 1, Number: 1},
		{EntryId: 2, Number: 2, Pinned: pin(10)},
	}

	// a reserved place past the tail floats with everyone else
	plan := PlanQueueNumbers(slots)
	assert.Equal(t, 1, plan[1])
	assert.Equal(t, 2, plan[2])
}

func TestPlanQueueNumbersPinnedConflict(t *testing.T) {
	slots := []QueueSlot{
		{EntryId: 1, Number: 1, Pinned: pin(2)},
		{EntryId: 2, Number: 3, Pinned: pin(2)},
		{EntryId: 3, Number: 5},
	}

	plan := PlanQueueNumbers(slots)
	assert.Equal(t, 2, plan[1])
	// the later claimant loses the contested place
	assert.Equal(t, 1, plan[2])
	assert.Equal(t, 3, plan[3])
}

func TestPlanQueueInsertTail(t *testing.T) {
	number, shiftFrom := PlanQueueInsert(4, nil)
	assert.Equal(t, 5, number)
	assert.Equal(t, 0, shiftFrom)
}

func TestPlanQueueInsertPinnedInside(t *testing.T) {
	number, shiftFrom := PlanQueueInsert(4, pin(2))
	assert.Equal(t, 2, number)
	assert.Equal(t, 2, shiftFrom)
}

func TestPlanQueueInsertPinnedPastTail(t *testing.T) {
	number, shiftFrom := PlanQueueInsert(4, pin(9))
	assert.Equal(t, 5, number)
	assert.Equal(t, 0, shiftFrom)
}

func TestPlanQueueInsertEmptyQueue(t *testing.T) {
	number, shiftFrom := PlanQueueInsert(0, pin(1))
	assert.Equal(t, 1, number)
	assert.Equal(t, 0, shiftFrom)
}

func TestPlanReservedInsertShiftsHolders(t *testing.T) {
	places := map[uint]int{1: 1, 2: 3, 3: 5}

	plan := PlanReservedInsert(places, 4, 3)

	assert.Equal(t, 3, plan[4])
	assert.Equal(t, 1, plan[1])
	// holders at or past the slot move up, no two share a place
	assert.Equal(t, 4, plan[2])
	assert.Equal(t, 6, plan[3])
}

func TestPlanReservedInsertMovesExistingHolder(t *testing.T) {
	places := map[uint]int{1: 2, 2: 4}

	plan := PlanReservedInsert(places, 1, 4)

	assert.Equal(t, 4, plan[1])
	assert.Equal(t, 5, plan[2])
}

func TestPlanReservedRelease(t *testing.T) {
	places := map[uint]int{1: 1, 2: 3, 3: 5}

	plan := PlanReservedRelease(places, 2)

	_, held := plan[2]
	assert.False(t, held)
	assert.Equal(t, 1, plan[1])
	// the gap behind the freed slot closes
	assert.Equal(t, 4, plan[3])
}

func TestPlanReservedReleaseUnknownHolder(t *testing.T) {
	places := map[uint]int{1: 2}

	plan := PlanReservedRelease(places, 9)

	assert.Equal(t, 2, plan[1])
}

func TestCheckQueueEligibility(t *testing.T) {
	prev := CurrentAppConfig
	CurrentAppConfig = defaultConfig()
	defer func() { CurrentAppConfig = prev }()

	ido := IDO{PersonAllocation: decimal.NewFromInt(1000)}

	// the entry price for a 1000 allocation is 1301
	poor := User{Balance: decimal.NewFromInt(1300)}
	assert.ErrorIs(t, CheckQueueEligibility(&poor, &ido), ErrQueueIneligible)

	rich := User{Balance: decimal.NewFromInt(1301)}
	assert.NoError(t, CheckQueueEligibility(&rich, &ido))

	// the deposit floor applies even for small rounds
	small := IDO{PersonAllocation: decimal.NewFromInt(100)}
	low := User{Balance: decimal.NewFromInt(500)}
	assert.ErrorIs(t, CheckQueueEligibility(&low, &small), ErrQueueIneligible)
}
