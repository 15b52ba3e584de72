package akv

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger row. Rows are never updated after
// creation except the received/visible flip on token takeoff; rollback
// correction deletes by ParticipantId.
type Transaction struct {
	Id            uint            `json:"id" gorm:"primarykey"`
	CreatedAt     time.Time       `json:"created_at"`
	AddressFromId uint            `gorm:"index" json:"address_from_id"`
	AddressToId   uint            `gorm:"index" json:"address_to_id"`
	CoinId        uint            `gorm:"index" json:"coin_id"`
	Amount        decimal.Decimal `gorm:"type:numeric" json:"amount"`
	Commission    bool            `gorm:"index" json:"commission"`
	Referral      bool            `gorm:"index" json:"referral"`
	Received      bool            `gorm:"index" json:"received"`
	FillUp        bool            `json:"fill_up"`
	Visible       bool            `gorm:"default:true" json:"visible"`
	// ParticipantId links referral/commission rows to the participation
	// that produced them, so a refund can unwind them exactly.
	ParticipantId *uint `gorm:"index" json:"participant_id"`
}
