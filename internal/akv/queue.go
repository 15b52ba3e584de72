package akv

import (
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueueSlot is the planner's view of one queue entry.
type QueueSlot struct {
	EntryId uint
	Number  int
	Pinned  *int
}

// PlanQueueNumbers produces a dense renumbering 1..N for the given
// slots. Pinned slots keep their reserved place when it fits and is
// free, everyone else fills the remaining places in current order.
func PlanQueueNumbers(slots []QueueSlot) map[uint]int {
	total := len(slots)
	plan := make(map[uint]int, total)
	taken := make(map[int]bool, total)

	ordered := make([]QueueSlot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Number < ordered[j].Number
	})

	var floating []QueueSlot
	for _, slot := range ordered {
		if slot.Pinned != nil && *slot.Pinned >= 1 && *slot.Pinned <= total && !taken[*slot.Pinned] {
			plan[slot.EntryId] = *slot.Pinned
			taken[*slot.Pinned] = true
		} else {
			floating = append(floating, slot)
		}
	}

	next := 1
	for _, slot := range floating {
		for taken[next] {
			next++
		}
		plan[slot.EntryId] = next
		taken[next] = true
	}
	return plan
}

// PlanQueueInsert picks the newcomer's number. A reserved place lands
// inside the queue and pushes everyone at or after it one step back;
// otherwise the newcomer takes the tail.
func PlanQueueInsert(queueLen int, pinned *int) (number int, shiftFrom int) {
	tail := queueLen + 1
	if pinned != nil && *pinned >= 1 && *pinned <= queueLen {
		return *pinned, *pinned
	}
	return tail, 0
}

// CheckQueueEligibility applies the deposit floor and the entry price
// of the round, allocation plus the thirty percent reserve share plus
// the flat transfer fee.
func CheckQueueEligibility(user *User, ido *IDO) error {
	limits := CurrentAppConfig.Settings.Limits
	minBalance := decimal.NewFromFloat(limits.QueueMinBalance)
	entryPrice := decimal.NewFromFloat(1.3).Mul(ido.PersonAllocation).Add(decimal.NewFromInt(1))
	if user.Balance.LessThan(minBalance) || user.Balance.LessThan(entryPrice) {
		return ErrQueueIneligible
	}
	return nil
}

// JoinQueue places a user into the round's queue.
func JoinQueue(db *gorm.DB, user *User, ido *IDO) (*QueueUser, error) {
	if ido.ChargeManually {
		return nil, ErrManualQueue
	}
	if err := CheckQueueEligibility(user, ido); err != nil {
		return nil, err
	}

	tx := db.Begin()
	defer tx.Rollback()

	var existing QueueUser
	res := tx.Where("ido_id = ? AND user_id = ?", ido.Id, user.Id).First(&existing)
	if res.Error == nil {
		return nil, ErrQueueDuplicate
	}
	if res.Error != gorm.ErrRecordNotFound {
		return nil, res.Error
	}

	var entries []QueueUser
	res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ido_id = ?", ido.Id).Order("number asc").Find(&entries)
	if res.Error != nil {
		return nil, res.Error
	}

	number, shiftFrom := PlanQueueInsert(len(entries), user.PermanentPlace)
	if places := ido.CountParticipants(); places > 0 && number > places {
		return nil, ErrQueueFull
	}
	if shiftFrom > 0 {
		res = tx.Model(&QueueUser{}).
			Where("ido_id = ? AND number >= ?", ido.Id, shiftFrom).
			Update("number", gorm.Expr("number + 1"))
		if res.Error != nil {
			return nil, res.Error
		}
	}

	entry := QueueUser{
		IdoId:     ido.Id,
		UserId:    user.Id,
		Number:    number,
		Permanent: user.PermanentPlace != nil && number == *user.PermanentPlace,
	}
	res = tx.Create(&entry)
	if res.Error != nil {
		return nil, res.Error
	}

	tx.Commit()
	return &entry, nil
}

// LeaveQueue removes the user's entry and closes the gap.
func LeaveQueue(db *gorm.DB, userId uint, idoId uint) error {
	tx := db.Begin()
	defer tx.Rollback()

	var entry QueueUser
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ido_id = ? AND user_id = ?", idoId, userId).First(&entry)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrNotInQueue
		}
		return res.Error
	}

	res = tx.Delete(&QueueUser{}, entry.Id)
	if res.Error != nil {
		return res.Error
	}
	if err := refreshQueuePlaces(tx, idoId); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

// RefreshQueuePlaces renumbers the round's queue into a dense 1..N,
// honoring reserved places.
func RefreshQueuePlaces(db *gorm.DB, idoId uint) error {
	tx := db.Begin()
	defer tx.Rollback()
	if err := refreshQueuePlaces(tx, idoId); err != nil {
		return err
	}
	tx.Commit()
	return nil
}

func refreshQueuePlaces(tx *gorm.DB, idoId uint) error {
	var entries []QueueUser
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ido_id = ?", idoId).Order("number asc").Find(&entries)
	if res.Error != nil {
		return res.Error
	}

	slots := make([]QueueSlot, 0, len(entries))
	for _, entry := range entries {
		slot := QueueSlot{EntryId: entry.Id, Number: entry.Number}
		if entry.Permanent {
			var owner User
			if err := tx.First(&owner, entry.UserId).Error; err == nil && owner.PermanentPlace != nil {
				slot.Pinned = owner.PermanentPlace
			}
		}
		slots = append(slots, slot)
	}

	plan := PlanQueueNumbers(slots)
	for _, entry := range entries {
		number := plan[entry.Id]
		if number == entry.Number {
			continue
		}
		res = tx.Model(&QueueUser{}).Where("id = ?", entry.Id).Update("number", number)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// PlanReservedInsert assigns place to userId and shifts every other
// holder at or past the slot up by one, keeping reserved places
// unique.
func PlanReservedInsert(places map[uint]int, userId uint, place int) map[uint]int {
	plan := make(map[uint]int, len(places)+1)
	for holder, held := range places {
		if holder == userId {
			continue
		}
		if held >= place {
			held++
		}
		plan[holder] = held
	}
	plan[userId] = place
	return plan
}

// PlanReservedRelease frees userId's reserved place and closes the gap
// it leaves in the other holders' places.
func PlanReservedRelease(places map[uint]int, userId uint) map[uint]int {
	freed, ok := places[userId]
	plan := make(map[uint]int, len(places))
	for holder, held := range places {
		if holder == userId {
			continue
		}
		if ok && held > freed {
			held--
		}
		plan[holder] = held
	}
	return plan
}

func reservedPlaces(tx *gorm.DB) (map[uint]int, error) {
	var holders []User
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("permanent_place IS NOT NULL").Find(&holders)
	if res.Error != nil {
		return nil, res.Error
	}
	places := make(map[uint]int, len(holders))
	for i := range holders {
		places[holders[i].Id] = *holders[i].PermanentPlace
	}
	return places, nil
}

func applyReservedPlan(tx *gorm.DB, before, plan map[uint]int) error {
	for holder, place := range plan {
		if held, ok := before[holder]; ok && held == place {
			continue
		}
		res := tx.Model(&User{}).Where("id = ?", holder).Update("permanent_place", place)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}

// SetPermanentPlace reserves a fixed queue position for the user and
// moves their live entries there. Other holders at or past the slot
// shift up so reserved places stay unique.
func SetPermanentPlace(db *gorm.DB, userId uint, place int) error {
	if place < 1 {
		return ErrBadPlace
	}

	tx := db.Begin()
	defer tx.Rollback()

	var user User
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrUserNotFound
		}
		return res.Error
	}

	before, err := reservedPlaces(tx)
	if err != nil {
		return err
	}
	if err := applyReservedPlan(tx, before, PlanReservedInsert(before, userId, place)); err != nil {
		return err
	}

	res = tx.Model(&QueueUser{}).Where("user_id = ?", userId).Update("permanent", true)
	if res.Error != nil {
		return res.Error
	}
	if err := refreshHolderQueues(tx, before, userId); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

// refreshHolderQueues renumbers every round where a reserved-place
// holder is queued, so a shift in one holder's place propagates.
func refreshHolderQueues(tx *gorm.DB, places map[uint]int, userId uint) error {
	holders := make([]uint, 0, len(places)+1)
	holders = append(holders, userId)
	for holder := range places {
		if holder != userId {
			holders = append(holders, holder)
		}
	}

	var idoIds []uint
	res := tx.Model(&QueueUser{}).Distinct("ido_id").
		Where("user_id IN ?", holders).Pluck("ido_id", &idoIds)
	if res.Error != nil {
		return res.Error
	}
	for _, idoId := range idoIds {
		if err := refreshQueuePlaces(tx, idoId); err != nil {
			return err
		}
	}
	return nil
}

// ClearPermanentPlace releases the user's reserved position and
// closes the gap in the other holders' places.
func ClearPermanentPlace(db *gorm.DB, userId uint) error {
	tx := db.Begin()
	defer tx.Rollback()

	var user User
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrUserNotFound
		}
		return res.Error
	}
	if user.PermanentPlace == nil {
		return ErrNoPermanentPlace
	}

	before, err := reservedPlaces(tx)
	if err != nil {
		return err
	}
	if err := applyReservedPlan(tx, before, PlanReservedRelease(before, userId)); err != nil {
		return err
	}
	res = tx.Model(&User{}).Where("id = ?", userId).Update("permanent_place", nil)
	if res.Error != nil {
		return res.Error
	}

	res = tx.Model(&QueueUser{}).Where("user_id = ?", userId).Update("permanent", false)
	if res.Error != nil {
		return res.Error
	}
	if err := refreshHolderQueues(tx, before, userId); err != nil {
		return err
	}

	tx.Commit()
	return nil
}

// QueueEntryData is the queue listing row shape.
type QueueEntryData struct {
	Number    int    `json:"number"`
	UserId    uint   `json:"user_id"`
	Email     string `json:"email"`
	Permanent bool   `json:"permanent"`
}

func ListQueue(db *gorm.DB, idoId uint) ([]QueueEntryData, error) {
	var entries []QueueUser
	res := db.Where("ido_id = ?", idoId).Order("number asc").Find(&entries)
	if res.Error != nil {
		return nil, res.Error
	}
	out := make([]QueueEntryData, 0, len(entries))
	for _, entry := range entries {
		var owner User
		email := ""
		if err := db.First(&owner, entry.UserId).Error; err == nil {
			email = owner.Email
		}
		out = append(out, QueueEntryData{
			Number:    entry.Number,
			UserId:    entry.UserId,
			Email:     email,
			Permanent: entry.Permanent,
		})
	}
	return out, nil
}
