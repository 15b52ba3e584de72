package akv

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxCommissionLevels bounds how far up the inviter chain income is
// shared.
const MaxCommissionLevels = 4

// UplineRecipient is the planner's view of one inviter in the chain,
// closest first.
type UplineRecipient struct {
	UserId     uint
	Level      int
	VIP        bool
	VIPPercent decimal.Decimal
	Active     bool
}

type CommissionShare struct {
	UserId uint
	Level  int
	Rate   decimal.Decimal
	Amount decimal.Decimal
}

// CommissionPlan splits a gross income: upline shares, the platform
// remainder up to the ceiling, and what the earner keeps.
type CommissionPlan struct {
	Shares   []CommissionShare
	Platform decimal.Decimal
	Retained decimal.Decimal
}

func tierRate(cfg RefSettings, level int) decimal.Decimal {
	switch level {
	case 1:
		return decimal.NewFromFloat(cfg.LvlOne)
	case 2:
		return decimal.NewFromFloat(cfg.LvlTwo)
	case 3:
		return decimal.NewFromFloat(cfg.LvlThree)
	}
	return decimal.Zero
}

// PlanCommission computes the split of gross across the upline. A VIP
// recipient's personal percent replaces the tier rate at any level;
// past the third level only VIPs are paid at all. If the combined
// rate breaks the ceiling nothing is emitted and the whole plan fails.
func PlanCommission(gross decimal.Decimal, upline []UplineRecipient, cfg RefSettings) (*CommissionPlan, error) {
	if gross.Sign() <= 0 {
		return nil, ErrBadAmount
	}

	ceiling := decimal.NewFromFloat(cfg.Ceiling)
	hundred := decimal.NewFromInt(100)

	plan := &CommissionPlan{}
	totalRate := decimal.Zero

	for _, recipient := range upline {
		if recipient.Level > MaxCommissionLevels {
			break
		}
		if !recipient.Active {
			continue
		}
		if recipient.Level > 3 && !recipient.VIP {
			continue
		}
		rate := tierRate(cfg, recipient.Level)
		if recipient.VIP && recipient.VIPPercent.Sign() > 0 {
			rate = recipient.VIPPercent.Div(hundred)
		}
		if rate.Sign() <= 0 {
			continue
		}
		totalRate = totalRate.Add(rate)
		plan.Shares = append(plan.Shares, CommissionShare{
			UserId: recipient.UserId,
			Level:  recipient.Level,
			Rate:   rate,
			Amount: gross.Mul(rate),
		})
	}

	if totalRate.GreaterThan(ceiling) {
		return nil, ErrCommissionCeiling
	}

	ceilingCut := gross.Mul(ceiling)
	paid := decimal.Zero
	for _, share := range plan.Shares {
		paid = paid.Add(share.Amount)
	}
	plan.Platform = ceilingCut.Sub(paid)
	plan.Retained = gross.Sub(ceilingCut)
	return plan, nil
}

// Quantize rounds the plan to the settlement wallet's scale. The
// platform remainder reconciles against the rounded shares so the
// split still sums to the ceiling cut.
func (p *CommissionPlan) Quantize(gross decimal.Decimal, cfg RefSettings, scale int32) {
	ceilingCut := gross.Mul(decimal.NewFromFloat(cfg.Ceiling)).Round(scale)
	paid := decimal.Zero
	for i := range p.Shares {
		p.Shares[i].Amount = p.Shares[i].Amount.Round(scale)
		paid = paid.Add(p.Shares[i].Amount)
	}
	p.Platform = ceilingCut.Sub(paid)
	p.Retained = gross.Sub(ceilingCut)
}

// LoadUplineRecipients materializes the inviter chain of user with VIP
// flags for the planner.
func LoadUplineRecipients(db *gorm.DB, user *User) ([]UplineRecipient, error) {
	chain, err := UplineChain(db, user, MaxCommissionLevels)
	if err != nil {
		return nil, err
	}
	recipients := make([]UplineRecipient, 0, len(chain))
	for i := range chain {
		recipient := UplineRecipient{
			UserId: chain[i].Id,
			Level:  i + 1,
			Active: chain[i].Status == StatusActive,
		}
		var vip VIPUser
		res := db.Where("user_id = ?", chain[i].Id).First(&vip)
		if res.Error == nil {
			recipient.VIP = true
			recipient.VIPPercent = vip.RefProfit
		} else if res.Error != gorm.ErrRecordNotFound {
			return nil, res.Error
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

// DistributeIncome shares a participant's gross token income with the
// upline. Below the refund cap nothing is distributed and the gross is
// returned untouched. The returned value is what the earner keeps.
func DistributeIncome(db *gorm.DB, user *User, participant *IDOParticipant, gross decimal.Decimal) (decimal.Decimal, error) {
	limits := CurrentAppConfig.Settings.Limits
	refundCap := decimal.NewFromFloat(limits.RefundCap)
	if participant.RefundAllocation.LessThan(refundCap) {
		return gross, nil
	}

	upline, err := LoadUplineRecipients(db, user)
	if err != nil {
		return decimal.Zero, err
	}
	plan, err := PlanCommission(gross, upline, CurrentAppConfig.Settings.Ref)
	if err != nil {
		return decimal.Zero, err
	}

	tx := db.Begin()
	defer tx.Rollback()

	mainWallet, err := GetMainWalletForUpdate(tx)
	if err != nil {
		return decimal.Zero, err
	}
	quote, err := GetQuoteCoin(tx)
	if err != nil {
		return decimal.Zero, err
	}
	plan.Quantize(gross, CurrentAppConfig.Settings.Ref, mainWallet.Decimal)

	for _, share := range plan.Shares {
		var recipient User
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&recipient, share.UserId)
		if res.Error != nil {
			return decimal.Zero, res.Error
		}
		recipient.RefBalance = recipient.RefBalance.Add(share.Amount)
		res = tx.Save(&recipient)
		if res.Error != nil {
			return decimal.Zero, res.Error
		}

		var recipientPart IDOParticipant
		res = tx.Where("ido_id = ? AND user_id = ?", participant.IdoId, share.UserId).First(&recipientPart)
		if res.Error == nil {
			recipientPart.IncomeFromIncome = recipientPart.IncomeFromIncome.Add(share.Amount)
			res = tx.Save(&recipientPart)
			if res.Error != nil {
				return decimal.Zero, res.Error
			}
		} else if res.Error != gorm.ErrRecordNotFound {
			return decimal.Zero, res.Error
		}

		recipientWallet, err := UserWallet(tx, share.UserId)
		if err == nil {
			transaction := Transaction{
				AddressFromId: mainWallet.AddressId,
				AddressToId:   recipientWallet.Id,
				CoinId:        quote.Id,
				Amount:        share.Amount,
				Referral:      true,
				Visible:       true,
			}
			res = tx.Create(&transaction)
			if res.Error != nil {
				return decimal.Zero, res.Error
			}
		} else if err != ErrWalletNotBound {
			return decimal.Zero, err
		}
	}

	mainWallet.Balance = mainWallet.Balance.Add(plan.Platform)
	res := tx.Save(&mainWallet)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}

	tx.Commit()
	return plan.Retained, nil
}

// PayParticipationReferral pays the inviter chain their tier share of
// a fresh participation, funded out of the reserve cut. Every ledger
// row carries the participation id so a refund can unwind it.
func PayParticipationReferral(tx *gorm.DB, user *User, participant *IDOParticipant) error {
	upline, err := LoadUplineRecipients(tx, user)
	if err != nil {
		return err
	}
	if len(upline) == 0 {
		return nil
	}
	plan, err := PlanCommission(participant.Allocation, upline, CurrentAppConfig.Settings.Ref)
	if err != nil {
		return err
	}

	mainWallet, err := GetMainWalletForUpdate(tx)
	if err != nil {
		return err
	}
	quote, err := GetQuoteCoin(tx)
	if err != nil {
		return err
	}
	plan.Quantize(participant.Allocation, CurrentAppConfig.Settings.Ref, mainWallet.Decimal)

	participantId := participant.Id
	paid := decimal.Zero
	for _, share := range plan.Shares {
		recipientWallet, err := UserWallet(tx, share.UserId)
		if err != nil {
			if err == ErrWalletNotBound {
				continue
			}
			return err
		}

		var recipient User
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&recipient, share.UserId)
		if res.Error != nil {
			return res.Error
		}
		recipient.RefBalance = recipient.RefBalance.Add(share.Amount)
		res = tx.Save(&recipient)
		if res.Error != nil {
			return res.Error
		}

		transaction := Transaction{
			AddressFromId: mainWallet.AddressId,
			AddressToId:   recipientWallet.Id,
			CoinId:        quote.Id,
			Amount:        share.Amount,
			Referral:      true,
			Visible:       true,
			ParticipantId: &participantId,
		}
		res = tx.Create(&transaction)
		if res.Error != nil {
			return res.Error
		}
		paid = paid.Add(share.Amount)
	}

	if paid.Sign() > 0 {
		mainWallet.Balance = mainWallet.Balance.Sub(paid)
		res := tx.Save(&mainWallet)
		if res.Error != nil {
			return res.Error
		}
	}
	return nil
}
