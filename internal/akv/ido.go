package akv

import (
	"time"

	"github.com/shopspring/decimal"
)

// IDO is a token sale round with a fixed pool and per-participant cap.
type IDO struct {
	Id                uint            `json:"id" gorm:"primarykey"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Name              string          `gorm:"not null" json:"name"`
	Description       string          `json:"description"`
	GeneralAllocation decimal.Decimal `gorm:"type:numeric" json:"general_allocation"`
	PersonAllocation  decimal.Decimal `gorm:"type:numeric" json:"person_allocation"`
	BuyDate           time.Time       `json:"buy_date"`
	Tge               time.Time       `json:"tge"`
	Vesting           string          `json:"vesting"`
	SmartcontractId   *uint           `gorm:"uniqueIndex" json:"smartcontract_id"`
	ExchangeId        *uint           `json:"exchange_id"`
	CoinId            *uint           `json:"coin_id"`
	Commission        decimal.Decimal `gorm:"type:numeric" json:"commission"` // platform percent
	TelegramAcc       string          `json:"telegram_acc"`
	TwitterAcc        string          `json:"twitter_acc"`
	DiscordAcc        string          `json:"discord_acc"`
	Site              string          `json:"site"`
	WhitePaper        string          `json:"white_paper"`
	WithoutPay        bool            `json:"without_pay"`
	ChargeManually    bool            `json:"charge_manually"`
	Image             string          `json:"image"`
}

// CountParticipants is the theoretical maximum participant count,
// floor(general_allocation / person_allocation).
func (i IDO) CountParticipants() int {
	if i.PersonAllocation.IsZero() {
		return 0
	}
	return int(i.GeneralAllocation.Div(i.PersonAllocation).IntPart())
}

// TokenCoin is the coin the round delivers. It is distinct from the
// contract address id the deposit scanner watches.
func (i IDO) TokenCoin() (uint, error) {
	if i.CoinId == nil {
		return 0, ErrCoinNotFound
	}
	return *i.CoinId, nil
}

// CheckParticipationPlace gates buying in on a queue place within the
// round's capacity.
func CheckParticipationPlace(number int, ido *IDO) error {
	if number > ido.CountParticipants() {
		return ErrQueueIneligible
	}
	return nil
}

// IDOParticipant is unique per (ido, user).
type IDOParticipant struct {
	Id        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	IdoId     uint      `gorm:"index:idx_part_ido_user,unique" json:"ido_id"`
	UserId    uint      `gorm:"index:idx_part_ido_user,unique" json:"user_id"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`

	Allocation decimal.Decimal `gorm:"type:numeric" json:"allocation"`
	// RefundAllocation accumulates income reclassified as refundable,
	// capped at RefundCap.
	RefundAllocation decimal.Decimal `gorm:"type:numeric;default:0" json:"refund_allocation"`
	// IncomeFromIncome accumulates referral commission in the quote
	// currency produced by this participation.
	IncomeFromIncome decimal.Decimal `gorm:"type:numeric;default:0" json:"income_from_income"`
}

// QueueUser is one slot of an offering's waiting list, unique per
// (ido, user). Numbers form a dense 1-based ordering per offering.
type QueueUser struct {
	Id        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	IdoId     uint      `gorm:"index:idx_queue_ido_user,unique" json:"ido_id"`
	UserId    uint      `gorm:"index:idx_queue_ido_user,unique" json:"user_id"`
	Number    int       `json:"number"`
	Permanent bool      `json:"permanent"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
}

type News struct {
	Id        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Header    string    `gorm:"not null" json:"header"`
	Body      string    `json:"body"`
	Image     string    `json:"image"`
}
