package akv

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlatformStats is the admin dashboard headline block.
type PlatformStats struct {
	TotalUsers    int64           `json:"total_users"`
	ActiveUsers   int64           `json:"active_users"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
	TotalHold     decimal.Decimal `json:"total_hold"`
	ReserveAmount decimal.Decimal `json:"reserve_amount"`
	QueueSize     int64           `json:"queue_size"`
	Participants  int64           `json:"participants"`
}

func CollectPlatformStats(db *gorm.DB) (*PlatformStats, error) {
	stats := &PlatformStats{}

	res := db.Model(&User{}).Count(&stats.TotalUsers)
	if res.Error != nil {
		return nil, res.Error
	}
	res = db.Model(&User{}).Where("status = ?", StatusActive).Count(&stats.ActiveUsers)
	if res.Error != nil {
		return nil, res.Error
	}

	type sums struct {
		Balance decimal.Decimal
		Hold    decimal.Decimal
	}
	var totals sums
	res = db.Model(&User{}).
		Select("COALESCE(SUM(balance), 0) as balance, COALESCE(SUM(hold), 0) as hold").
		Scan(&totals)
	if res.Error != nil {
		return nil, res.Error
	}
	stats.TotalBalance = totals.Balance
	stats.TotalHold = totals.Hold

	mainWallet, err := GetMainWallet(db)
	if err != nil && err != ErrMainWalletMissing {
		return nil, err
	}
	if err == nil {
		stats.ReserveAmount = mainWallet.Balance
	}

	res = db.Model(&QueueUser{}).Count(&stats.QueueSize)
	if res.Error != nil {
		return nil, res.Error
	}
	res = db.Model(&IDOParticipant{}).Count(&stats.Participants)
	if res.Error != nil {
		return nil, res.Error
	}

	return stats, nil
}

// IncomeReport aggregates platform commission income over a window.
type IncomeReport struct {
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Commissions decimal.Decimal `json:"commissions"`
	Deposits    decimal.Decimal `json:"deposits"`
	Referrals   decimal.Decimal `json:"referrals"`
	Count       int64           `json:"count"`
}

func CollectIncomeReport(db *gorm.DB, from time.Time, to time.Time) (*IncomeReport, error) {
	report := &IncomeReport{From: from, To: to}

	type row struct {
		Total decimal.Decimal
		Count int64
	}

	var commissions row
	res := db.Model(&Transaction{}).
		Select("COALESCE(SUM(amount), 0) as total, COUNT(*) as count").
		Where("commission = ? AND created_at BETWEEN ? AND ?", true, from, to).
		Scan(&commissions)
	if res.Error != nil {
		return nil, res.Error
	}
	report.Commissions = commissions.Total
	report.Count = commissions.Count

	var deposits row
	res = db.Model(&Transaction{}).
		Select("COALESCE(SUM(amount), 0) as total, COUNT(*) as count").
		Where("fill_up = ? AND created_at BETWEEN ? AND ?", true, from, to).
		Scan(&deposits)
	if res.Error != nil {
		return nil, res.Error
	}
	report.Deposits = deposits.Total

	var referrals row
	res = db.Model(&Transaction{}).
		Select("COALESCE(SUM(amount), 0) as total, COUNT(*) as count").
		Where("referral = ? AND created_at BETWEEN ? AND ?", true, from, to).
		Scan(&referrals)
	if res.Error != nil {
		return nil, res.Error
	}
	report.Referrals = referrals.Total

	return report, nil
}

// MonthlyIncome returns one report per month for the trailing year.
func MonthlyIncome(db *gorm.DB, now time.Time) ([]IncomeReport, error) {
	reports := make([]IncomeReport, 0, 12)
	cursor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -11, 0)
	for i := 0; i < 12; i++ {
		from := cursor
		to := cursor.AddDate(0, 1, 0)
		report, err := CollectIncomeReport(db, from, to)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
		cursor = to
	}
	return reports, nil
}

// UserIdoStats is the per-user breakdown of one round.
type UserIdoStats struct {
	IdoId            uint            `json:"ido_id"`
	IdoName          string          `json:"ido_name"`
	Allocation       decimal.Decimal `json:"allocation"`
	RefundAllocation decimal.Decimal `json:"refund_allocation"`
	IncomeFromIncome decimal.Decimal `json:"income_from_income"`
}

func CollectUserIdoStats(db *gorm.DB, userId uint) ([]UserIdoStats, error) {
	var participations []IDOParticipant
	res := db.Where("user_id = ?", userId).Order("id asc").Find(&participations)
	if res.Error != nil {
		return nil, res.Error
	}

	out := make([]UserIdoStats, 0, len(participations))
	for _, participation := range participations {
		var ido IDO
		name := ""
		if err := db.First(&ido, participation.IdoId).Error; err == nil {
			name = ido.Name
		}
		out = append(out, UserIdoStats{
			IdoId:            participation.IdoId,
			IdoName:          name,
			Allocation:       participation.Allocation,
			RefundAllocation: participation.RefundAllocation,
			IncomeFromIncome: participation.IncomeFromIncome,
		})
	}
	return out, nil
}

// UserTransactions lists the visible ledger rows touching the user's
// bound wallet, newest first.
func UserTransactions(db *gorm.DB, userId uint) ([]Transaction, error) {
	wallet, err := UserWallet(db, userId)
	if err != nil {
		return nil, err
	}
	var transactions []Transaction
	res := db.Where("visible = ? AND (address_from_id = ? OR address_to_id = ?)",
		true, wallet.Id, wallet.Id).
		Order("created_at desc").Find(&transactions)
	if res.Error != nil {
		return nil, res.Error
	}
	if len(transactions) == 0 {
		return nil, ErrNoTransactions
	}
	return transactions, nil
}
