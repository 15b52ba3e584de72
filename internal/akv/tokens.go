package akv

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TryTakeoffTokens validates a token payout request before anything is
// transferred. The settlement coin itself cannot be taken off this
// way.
func TryTakeoffTokens(db *gorm.DB, userId uint, idoId uint, coinId uint) error {
	var ido IDO
	res := db.First(&ido, idoId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrIdoNotFound
		}
		return res.Error
	}

	var coin Coin
	res = db.First(&coin, coinId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrCoinNotFound
		}
		return res.Error
	}
	if coin.Name == QuoteCoin {
		return ErrQuoteTakeoff
	}

	var participant IDOParticipant
	res = db.Where("ido_id = ? AND user_id = ?", idoId, userId).First(&participant)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrIdoNotFound
		}
		return res.Error
	}
	if participant.Allocation.Sign() <= 0 {
		return ErrAllocationExceeded
	}

	if _, err := UserWallet(db, userId); err != nil {
		return err
	}
	return nil
}

// ClaimTokens marks the user's pending token transfers for a round as
// delivered and settles their value. Returns what landed on the
// balance.
func ClaimTokens(db *gorm.DB, userId uint, idoId uint) (decimal.Decimal, error) {
	var ido IDO
	res := db.First(&ido, idoId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return decimal.Zero, ErrIdoNotFound
		}
		return decimal.Zero, res.Error
	}
	if ido.SmartcontractId == nil || ido.CoinId == nil {
		return decimal.Zero, ErrCoinNotFound
	}
	if err := TryTakeoffTokens(db, userId, idoId, *ido.CoinId); err != nil {
		return decimal.Zero, err
	}

	var coin Coin
	res = db.First(&coin, *ido.CoinId)
	if res.Error != nil {
		return decimal.Zero, ErrCoinNotFound
	}
	wallet, err := UserWallet(db, userId)
	if err != nil {
		return decimal.Zero, err
	}

	tx := db.Begin()
	defer tx.Rollback()

	var pending []Transaction
	res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("coin_id = ? AND address_to_id = ? AND received = ?", coin.Id, wallet.Id, false).
		Find(&pending)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if len(pending) == 0 {
		return decimal.Zero, ErrNoTransactions
	}

	tokens := decimal.Zero
	for _, transfer := range pending {
		tokens = tokens.Add(transfer.Amount)
	}
	res = tx.Model(&Transaction{}).
		Where("coin_id = ? AND address_to_id = ? AND received = ?", coin.Id, wallet.Id, false).
		Update("received", true)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	tx.Commit()

	value := tokens.Mul(coin.CostInBusd)
	if value.Sign() <= 0 {
		return decimal.Zero, nil
	}
	return TakeoffTokensSuccess(db, userId, idoId, value)
}

// TakeoffTokensSuccess settles a confirmed token payout, valued in the
// settlement coin. The first part of a participant's proceeds, up to
// the refund cap, comes back whole; everything above the cap is income
// and is shared with the upline before the rest lands on the balance.
func TakeoffTokensSuccess(db *gorm.DB, userId uint, idoId uint, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrBadAmount
	}
	refundCap := decimal.NewFromFloat(CurrentAppConfig.Settings.Limits.RefundCap)

	tx := db.Begin()
	defer tx.Rollback()

	var participant IDOParticipant
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ido_id = ? AND user_id = ?", idoId, userId).First(&participant)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return decimal.Zero, ErrIdoNotFound
		}
		return decimal.Zero, res.Error
	}

	var user User
	res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userId)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}

	refundRoom := refundCap.Sub(participant.RefundAllocation)
	if refundRoom.Sign() < 0 {
		refundRoom = decimal.Zero
	}
	refundPart := decimal.Min(amount, refundRoom)
	incomePart := amount.Sub(refundPart)

	if refundPart.Sign() > 0 {
		participant.RefundAllocation = participant.RefundAllocation.Add(refundPart)
		if participant.RefundAllocation.GreaterThan(refundCap) {
			participant.RefundAllocation = refundCap
		}
		res = tx.Save(&participant)
		if res.Error != nil {
			return decimal.Zero, res.Error
		}

		user.Balance = user.Balance.Add(refundPart)
		res = tx.Save(&user)
		if res.Error != nil {
			return decimal.Zero, res.Error
		}
	}

	tx.Commit()

	credited := refundPart
	if incomePart.Sign() > 0 {
		retained, err := DistributeIncome(db, &user, &participant, incomePart)
		if err != nil {
			return credited, err
		}

		tx = db.Begin()
		defer tx.Rollback()
		res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userId)
		if res.Error != nil {
			return credited, res.Error
		}
		user.Balance = user.Balance.Add(retained)
		res = tx.Save(&user)
		if res.Error != nil {
			return credited, res.Error
		}
		tx.Commit()
		credited = credited.Add(retained)
	}

	return credited, nil
}
