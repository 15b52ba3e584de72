package akv

import (
	"gorm.io/gorm"
)

// ChildLoader returns the direct invitees of a user, ordered by id.
type ChildLoader func(parentId uint) ([]User, error)

// DbChildLoader reads direct invitees from the database.
func DbChildLoader(db *gorm.DB) ChildLoader {
	return func(parentId uint) ([]User, error) {
		var children []User
		res := db.Where("inviter_id = ?", parentId).Order("id asc").Find(&children)
		if res.Error != nil {
			return nil, res.Error
		}
		return children, nil
	}
}

// WalkDownline visits the whole subtree under rootId in depth-first
// order using an explicit work stack, so arbitrarily deep trees cannot
// exhaust the call stack. The root itself is not visited.
func WalkDownline(load ChildLoader, rootId uint, visit func(user User, depth int) error) error {
	type frame struct {
		user  User
		depth int
	}

	roots, err := load(rootId)
	if err != nil {
		return err
	}

	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{user: roots[i], depth: 1})
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := visit(top.user, top.depth); err != nil {
			return err
		}

		children, err := load(top.user.Id)
		if err != nil {
			return err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{user: children[i], depth: top.depth + 1})
		}
	}
	return nil
}

// UplineChain walks inviter pointers up from user, closest first, for
// at most maxLevels steps. A nil inviter pointer ends the chain.
func UplineChain(db *gorm.DB, user *User, maxLevels int) ([]User, error) {
	chain := make([]User, 0, maxLevels)
	currentId := user.InviterId
	for level := 0; level < maxLevels && currentId != nil; level++ {
		var inviter User
		res := db.First(&inviter, *currentId)
		if res.Error != nil {
			if res.Error == gorm.ErrRecordNotFound {
				break
			}
			return nil, res.Error
		}
		chain = append(chain, inviter)
		currentId = inviter.InviterId
	}
	return chain, nil
}

// AssignInviter links user under inviter and stamps the line depth.
// The full upline of the inviter is scanned first so a user can never
// become their own ancestor.
func AssignInviter(db *gorm.DB, user *User, inviter *User) error {
	if inviter.Id == user.Id {
		return ErrInviterCycle
	}
	currentId := inviter.InviterId
	for currentId != nil {
		if *currentId == user.Id {
			return ErrInviterCycle
		}
		var ancestor User
		res := db.First(&ancestor, *currentId)
		if res.Error != nil {
			if res.Error == gorm.ErrRecordNotFound {
				break
			}
			return res.Error
		}
		currentId = ancestor.InviterId
	}

	inviterId := inviter.Id
	user.InviterId = &inviterId
	user.Line = inviter.Line + 1
	return nil
}

// PartnerCount is the per-depth breakdown of a user's downline.
type PartnerCount struct {
	Depth int `json:"depth"`
	Count int `json:"count"`
}

type DownlineStats struct {
	Total     int            `json:"total"`
	Active    int            `json:"active"`
	Passive   int            `json:"passive"`
	NotActive int            `json:"not_active"`
	ByDepth   []PartnerCount `json:"by_depth"`
	MaxDepth  int            `json:"max_depth"`
}

// CollectDownlineStats walks the full subtree of rootId.
func CollectDownlineStats(load ChildLoader, rootId uint) (*DownlineStats, error) {
	stats := &DownlineStats{}
	perDepth := map[int]int{}
	err := WalkDownline(load, rootId, func(user User, depth int) error {
		stats.Total++
		switch user.Status {
		case StatusActive:
			stats.Active++
		case StatusPassive:
			stats.Passive++
		default:
			stats.NotActive++
		}
		perDepth[depth]++
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for depth := 1; depth <= stats.MaxDepth; depth++ {
		stats.ByDepth = append(stats.ByDepth, PartnerCount{Depth: depth, Count: perDepth[depth]})
	}
	return stats, nil
}

// DirectPartners returns the first line of a user's downline.
func DirectPartners(db *gorm.DB, userId uint) ([]UserData, error) {
	var partners []User
	res := db.Where("inviter_id = ?", userId).Order("id asc").Find(&partners)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make([]UserData, 0, len(partners))
	for i := range partners {
		out = append(out, partners[i].Data())
	}
	return out, nil
}
