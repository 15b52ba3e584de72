package akv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLoader(tree map[uint][]uint, status map[uint]string) ChildLoader {
	return func(parentId uint) ([]User, error) {
		var children []User
		for _, id := range tree[parentId] {
			children = append(children, User{Id: id, Status: status[id]})
		}
		return children, nil
	}
}

func TestWalkDownlineOrder(t *testing.T) {
	//  1
	//  ├ 2
	//  │ ├ 4
	//  │ └ 5
	//  └ 3
	//    └ 6
	tree := map[uint][]uint{1: {2, 3}, 2: {4, 5}, 3: {6}}
	load := mapLoader(tree, map[uint]string{})

	var ids []uint
	var depths []int
	err := WalkDownline(load, 1, func(user User, depth int) error {
		ids = append(ids, user.Id)
		depths = append(depths, depth)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{2, 4, 5, 3, 6}, ids)
	assert.Equal(t, []int{1, 2, 2, 1, 2}, depths)
}

func TestWalkDownlineEmpty(t *testing.T) {
	load := mapLoader(map[uint][]uint{}, map[uint]string{})
	visited := 0
	err := WalkDownline(load, 1, func(User, int) error {
		visited++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, visited)
}

func TestWalkDownlineVisitError(t *testing.T) {
	tree := map[uint][]uint{1: {2, 3}}
	load := mapLoader(tree, map[uint]string{})
	boom := errors.New("boom")

	err := WalkDownline(load, 1, func(user User, _ int) error {
		if user.Id == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestCollectDownlineStats(t *testing.T) {
	tree := map[uint][]uint{1: {2, 3}, 2: {4, 5}, 4: {6}}
	status := map[uint]string{
		2: StatusActive,
		3: StatusPassive,
		4: StatusActive,
		5: StatusNotActive,
		6: StatusNotActive,
	}
	load := mapLoader(tree, status)

	stats, err := CollectDownlineStats(load, 1)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.Passive)
	assert.Equal(t, 2, stats.NotActive)
	assert.Equal(t, 3, stats.MaxDepth)
	require.Len(t, stats.ByDepth, 3)
	assert.Equal(t, PartnerCount{Depth: 1, Count: 2}, stats.ByDepth[0])
	assert.Equal(t, PartnerCount{Depth: 2, Count: 2}, stats.ByDepth[1])
	assert.Equal(t, PartnerCount{Depth: 3, Count: 1}, stats.ByDepth[2])
}

func TestAssignInviterSelf(t *testing.T) {
	user := User{Id: 5}
	err := AssignInviter(nil, &user, &user)
	assert.ErrorIs(t, err, ErrInviterCycle)
	assert.Nil(t, user.InviterId)
}

func TestAssignInviterStampsLine(t *testing.T) {
	user := User{Id: 5}
	inviter := User{Id: 2, Line: 3}

	err := AssignInviter(nil, &user, &inviter)
	require.NoError(t, err)
	require.NotNil(t, user.InviterId)
	assert.Equal(t, uint(2), *user.InviterId)
	assert.Equal(t, uint(4), user.Line)
}
