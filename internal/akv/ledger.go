package akv

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyDeposit credits a confirmed incoming transfer to the user's
// reserve balance.
func ApplyDeposit(db *gorm.DB, userId uint, fromAddressId uint, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrBadAmount
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

	mainWallet, err := GetMainWalletForUpdate(tx)
	if err != nil {
		return err
	}
	quote, err := GetQuoteCoin(tx)
	if err != nil {
		return err
	}

	user.Balance = user.Balance.Add(amount)
	res = tx.Save(&user)
	if res.Error != nil {
		return res.Error
	}

	mainWallet.Balance = mainWallet.Balance.Add(amount)
	res = tx.Save(&mainWallet)
	if res.Error != nil {
		return res.Error
	}

	transaction := Transaction{
		AddressFromId: fromAddressId,
		AddressToId:   mainWallet.AddressId,
		CoinId:        quote.Id,
		Amount:        amount,
		Received:      true,
		FillUp:        true,
		Visible:       true,
	}
	res = tx.Create(&transaction)
	if res.Error != nil {
		return res.Error
	}

	tx.Commit()
	return nil
}

// CheckWithdrawal validates a reserve payout. The held part of the
// balance is never touchable and the platform reserve must cover the
// amount leaving it.
func CheckWithdrawal(balance, hold, reserve, amount, commission decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrBadAmount
	}
	if balance.LessThan(hold.Add(amount).Add(commission)) {
		return ErrHoldLocked
	}
	if reserve.LessThan(amount) {
		return ErrInsufficientReserve
	}
	return nil
}

// PlanParticipationDebit computes the cost of booking an allocation:
// the total debit including the reserve share, the reserve cut itself
// and how much of the user's hold the booking consumes.
func PlanParticipationDebit(allocation, hold decimal.Decimal, reserveShare float64) (cost, cut, heldCut decimal.Decimal) {
	cut = allocation.Mul(decimal.NewFromFloat(reserveShare))
	cost = allocation.Add(cut)
	heldCut = decimal.Min(hold, allocation)
	return cost, cut, heldCut
}

// TakeOffReserve pays out amount from the user's reserve balance to
// their bound wallet. The flat transfer commission is charged on top
// and the held part of the balance is never touchable.
func TakeOffReserve(db *gorm.DB, userId uint, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrBadAmount
	}
	commission := decimal.NewFromFloat(CurrentAppConfig.Settings.Limits.WithdrawCommission)

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

	wallet, err := UserWallet(tx, userId)
	if err != nil {
		return err
	}
	mainWallet, err := GetMainWalletForUpdate(tx)
	if err != nil {
		return err
	}
	if err := CheckWithdrawal(user.Balance, user.Hold, mainWallet.Balance, amount, commission); err != nil {
		return err
	}
	quote, err := GetQuoteCoin(tx)
	if err != nil {
		return err
	}

	user.Balance = user.Balance.Sub(amount).Sub(commission)
	res = tx.Save(&user)
	if res.Error != nil {
		return res.Error
	}

	mainWallet.Balance = mainWallet.Balance.Sub(amount)
	res = tx.Save(&mainWallet)
	if res.Error != nil {
		return res.Error
	}

	payout := Transaction{
		AddressFromId: mainWallet.AddressId,
		AddressToId:   wallet.Id,
		CoinId:        quote.Id,
		Amount:        amount,
		Received:      true,
		Visible:       true,
	}
	res = tx.Create(&payout)
	if res.Error != nil {
		return res.Error
	}

	fee := Transaction{
		AddressFromId: wallet.Id,
		AddressToId:   mainWallet.AddressId,
		CoinId:        quote.Id,
		Amount:        commission,
		Commission:    true,
		Visible:       true,
	}
	res = tx.Create(&fee)
	if res.Error != nil {
		return res.Error
	}

	tx.Commit()
	return nil
}

// FillFromReferral moves earned referral funds into the reserve
// balance. Internal move, no commission.
func FillFromReferral(db *gorm.DB, userId uint, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrBadAmount
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

	if user.RefBalance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	user.RefBalance = user.RefBalance.Sub(amount)
	user.Balance = user.Balance.Add(amount)
	res = tx.Save(&user)
	if res.Error != nil {
		return res.Error
	}

	tx.Commit()
	return nil
}

// TakeOffReferral pays out referral earnings to the user's bound
// wallet, flat commission on top.
func TakeOffReferral(db *gorm.DB, userId uint, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrBadAmount
	}
	commission := decimal.NewFromFloat(CurrentAppConfig.Settings.Limits.WithdrawCommission)

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

	if user.RefBalance.LessThan(amount.Add(commission)) {
		return ErrInsufficientFunds
	}

	wallet, err := UserWallet(tx, userId)
	if err != nil {
		return err
	}
	mainWallet, err := GetMainWalletForUpdate(tx)
	if err != nil {
		return err
	}
	if mainWallet.Balance.LessThan(amount) {
		return ErrInsufficientReserve
	}
	quote, err := GetQuoteCoin(tx)
	if err != nil {
		return err
	}

	user.RefBalance = user.RefBalance.Sub(amount).Sub(commission)
	res = tx.Save(&user)
	if res.Error != nil {
		return res.Error
	}

	mainWallet.Balance = mainWallet.Balance.Sub(amount)
	res = tx.Save(&mainWallet)
	if res.Error != nil {
		return res.Error
	}

	payout := Transaction{
		AddressFromId: mainWallet.AddressId,
		AddressToId:   wallet.Id,
		CoinId:        quote.Id,
		Amount:        amount,
		Received:      true,
		Referral:      true,
		Visible:       true,
	}
	res = tx.Create(&payout)
	if res.Error != nil {
		return res.Error
	}

	fee := Transaction{
		AddressFromId: wallet.Id,
		AddressToId:   mainWallet.AddressId,
		CoinId:        quote.Id,
		Amount:        commission,
		Commission:    true,
		Visible:       true,
	}
	res = tx.Create(&fee)
	if res.Error != nil {
		return res.Error
	}

	tx.Commit()
	return nil
}

// Participate books a user into a round. The user must hold a queue
// place within the round's capacity. The reserve balance is debited
// the allocation plus the thirty percent reserve share, any held
// refund is consumed first, and the inviter chain is paid its cut of
// the allocation. Every ledger row created here carries the
// participation id.
func Participate(db *gorm.DB, userId uint, idoId uint) (*IDOParticipant, error) {
	tx := db.Begin()
	defer tx.Rollback()

	var ido IDO
	res := tx.First(&ido, idoId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrIdoNotFound
		}
		return nil, res.Error
	}
	if ido.WithoutPay {
		return nil, ErrWithoutPayDisabled
	}

	var user User
	res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, res.Error
	}

	var existing IDOParticipant
	res = tx.Where("ido_id = ? AND user_id = ?", idoId, userId).First(&existing)
	if res.Error == nil {
		return nil, ErrAlreadyParticipant
	}
	if res.Error != gorm.ErrRecordNotFound {
		return nil, res.Error
	}

	// only a queue place inside the round's capacity may buy in
	var queueEntry QueueUser
	res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ido_id = ? AND user_id = ?", idoId, userId).First(&queueEntry)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrNotInQueue
		}
		return nil, res.Error
	}
	if err := CheckParticipationPlace(queueEntry.Number, &ido); err != nil {
		return nil, err
	}

	var taken int64
	res = tx.Model(&IDOParticipant{}).Where("ido_id = ?", idoId).Count(&taken)
	if res.Error != nil {
		return nil, res.Error
	}
	if int(taken) >= ido.CountParticipants() {
		return nil, ErrAllocationDrained
	}

	cost, commissionCut, heldCut := PlanParticipationDebit(
		ido.PersonAllocation, user.Hold, CurrentAppConfig.Settings.Limits.ReserveShare)
	if user.Balance.LessThan(cost) {
		return nil, ErrInsufficientFunds
	}

	user.Balance = user.Balance.Sub(cost)
	user.Hold = user.Hold.Sub(heldCut)
	res = tx.Save(&user)
	if res.Error != nil {
		return nil, res.Error
	}

	participant := IDOParticipant{
		IdoId:      idoId,
		UserId:     userId,
		Allocation: ido.PersonAllocation,
	}
	res = tx.Create(&participant)
	if res.Error != nil {
		return nil, res.Error
	}

	mainWallet, err := GetMainWalletForUpdate(tx)
	if err != nil {
		return nil, err
	}
	quote, err := GetQuoteCoin(tx)
	if err != nil {
		return nil, err
	}

	mainWallet.Balance = mainWallet.Balance.Add(commissionCut)
	res = tx.Save(&mainWallet)
	if res.Error != nil {
		return nil, res.Error
	}

	participantId := participant.Id
	if wallet, err := UserWallet(tx, userId); err == nil {
		stake := Transaction{
			AddressFromId: wallet.Id,
			AddressToId:   mainWallet.AddressId,
			CoinId:        quote.Id,
			Amount:        ido.PersonAllocation,
			Visible:       true,
			ParticipantId: &participantId,
		}
		if res = tx.Create(&stake); res.Error != nil {
			return nil, res.Error
		}
		fee := Transaction{
			AddressFromId: wallet.Id,
			AddressToId:   mainWallet.AddressId,
			CoinId:        quote.Id,
			Amount:        commissionCut,
			Commission:    true,
			Visible:       true,
			ParticipantId: &participantId,
		}
		if res = tx.Create(&fee); res.Error != nil {
			return nil, res.Error
		}
	} else if err != ErrWalletNotBound {
		return nil, err
	}

	if err := PayParticipationReferral(tx, &user, &participant); err != nil {
		return nil, err
	}

	if res = tx.Delete(&QueueUser{}, queueEntry.Id); res.Error != nil {
		return nil, res.Error
	}
	if err := refreshQueuePlaces(tx, idoId); err != nil {
		return nil, err
	}

	tx.Commit()
	return &participant, nil
}

// RefundParticipation cancels a participation: the user gets the full
// debit back, the allocation becomes held until it is spent again, and
// every ledger row the participation produced is unwound by its id.
func RefundParticipation(db *gorm.DB, userId uint, idoId uint) error {
	tx := db.Begin()
	defer tx.Rollback()

	var participant IDOParticipant
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ido_id = ? AND user_id = ?", idoId, userId).First(&participant)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrIdoNotFound
		}
		return res.Error
	}

	var user User
	res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userId)
	if res.Error != nil {
		return res.Error
	}

	mainWallet, err := GetMainWalletForUpdate(tx)
	if err != nil {
		return err
	}

	_, commissionCut, _ := PlanParticipationDebit(
		participant.Allocation, decimal.Zero, CurrentAppConfig.Settings.Limits.ReserveShare)

	var trail []Transaction
	res = tx.Where("participant_id = ?", participant.Id).Find(&trail)
	if res.Error != nil {
		return res.Error
	}
	for _, transaction := range trail {
		if transaction.Referral {
			var wallet MetamaskWallet
			res = tx.Where("address_id = ?", transaction.AddressToId).First(&wallet)
			if res.Error == nil {
				var recipient User
				if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&recipient, wallet.UserId).Error; err == nil {
					recipient.RefBalance = recipient.RefBalance.Sub(transaction.Amount)
					if res = tx.Save(&recipient); res.Error != nil {
						return res.Error
					}
					mainWallet.Balance = mainWallet.Balance.Add(transaction.Amount)
				}
			} else if res.Error != gorm.ErrRecordNotFound {
				return res.Error
			}
		}
	}
	res = tx.Where("participant_id = ?", participant.Id).Delete(&Transaction{})
	if res.Error != nil {
		return res.Error
	}

	user.Balance = user.Balance.Add(participant.Allocation).Add(commissionCut)
	user.Hold = user.Hold.Add(participant.Allocation)
	res = tx.Save(&user)
	if res.Error != nil {
		return res.Error
	}

	mainWallet.Balance = mainWallet.Balance.Sub(commissionCut)
	res = tx.Save(&mainWallet)
	if res.Error != nil {
		return res.Error
	}

	res = tx.Delete(&IDOParticipant{}, participant.Id)
	if res.Error != nil {
		return res.Error
	}

	tx.Commit()
	return nil
}

// DropFreeParticipant removes an admin-seeded participation. Nothing
// was debited for it, so nothing is credited back.
func DropFreeParticipant(db *gorm.DB, participantId uint) error {
	tx := db.Begin()
	defer tx.Rollback()

	res := tx.Where("participant_id = ?", participantId).Delete(&Transaction{})
	if res.Error != nil {
		return res.Error
	}
	res = tx.Delete(&IDOParticipant{}, participantId)
	if res.Error != nil {
		return res.Error
	}

	tx.Commit()
	return nil
}

// UnwindParticipants refunds every participant of a round, latest
// bookings first. Free rounds just drop the rows.
func UnwindParticipants(db *gorm.DB, ido *IDO) error {
	var participants []IDOParticipant
	res := db.Where("ido_id = ?", ido.Id).Order("id desc").Find(&participants)
	if res.Error != nil {
		return res.Error
	}
	for _, participant := range participants {
		if ido.WithoutPay {
			if err := DropFreeParticipant(db, participant.Id); err != nil {
				return err
			}
			continue
		}
		if err := RefundParticipation(db, participant.UserId, ido.Id); err != nil {
			return err
		}
	}
	return nil
}

// RefundDisplacedParticipants refunds the participants a shrunken
// round no longer has room for, latest bookings first. Returns how
// many were displaced.
func RefundDisplacedParticipants(db *gorm.DB, ido *IDO) (int, error) {
	var participants []IDOParticipant
	res := db.Where("ido_id = ?", ido.Id).Order("id asc").Find(&participants)
	if res.Error != nil {
		return 0, res.Error
	}
	capacity := ido.CountParticipants()
	if len(participants) <= capacity {
		return 0, nil
	}

	displaced := participants[capacity:]
	for i := len(displaced) - 1; i >= 0; i-- {
		if ido.WithoutPay {
			if err := DropFreeParticipant(db, displaced[i].Id); err != nil {
				return 0, err
			}
			continue
		}
		if err := RefundParticipation(db, displaced[i].UserId, ido.Id); err != nil {
			return 0, err
		}
	}
	return len(displaced), nil
}
