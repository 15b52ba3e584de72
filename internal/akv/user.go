package akv

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	StatusActive    = "active"
	StatusPassive   = "passive"
	StatusNotActive = "not_active"
)

type User struct {
	Id             uint            `json:"id" gorm:"primarykey"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
	Email          string          `gorm:"uniqueIndex;not null" json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	PasswordHash   string          `json:"-"`
	IsActive       bool            `json:"is_active"`
	IsStaff        bool            `json:"is_staff"`
	IsSuperuser    bool            `json:"is_superuser"`
	Permissions    string          `json:"-"` // space-joined codenames, eg. "add_ido change_ido"
	InviteCode     string          `gorm:"uniqueIndex" json:"invite_code"`
	CanInvite      bool            `json:"can_invite"`
	InviterId      *uint           `gorm:"index" json:"inviter_id"`
	Line           uint            `json:"line"` // depth in the referral tree, inviter.line+1 or 1
	Status         string          `gorm:"default:not_active" json:"status"`
	PermanentPlace *int            `json:"permanent_place"`
	Balance        decimal.Decimal `gorm:"type:numeric;default:0" json:"balance"`
	RefBalance     decimal.Decimal `gorm:"type:numeric;default:0" json:"referral_balance"`
	Hold           decimal.Decimal `gorm:"type:numeric;default:0" json:"hold"`
}

type UserData struct {
	ID         uint            `json:"id"`
	Email      string          `json:"email"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Status     string          `json:"status"`
	Line       uint            `json:"line"`
	Balance    decimal.Decimal `json:"balance"`
	RefBalance decimal.Decimal `json:"referral_balance"`
	Hold       decimal.Decimal `json:"hold"`
	InviteCode string          `json:"invite_code"`
	CanInvite  bool            `json:"can_invite"`
}

func (u User) Data() UserData {
	return UserData{
		ID:         u.Id,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Status:     u.Status,
		Line:       u.Line,
		Balance:    u.Balance,
		RefBalance: u.RefBalance,
		Hold:       u.Hold,
		InviteCode: u.InviteCode,
		CanInvite:  u.CanInvite,
	}
}

// HasPerm reports whether the user carries the codename directly or via
// superuser status.
func (u User) HasPerm(codename string) bool {
	if u.IsSuperuser {
		return true
	}
	for _, perm := range strings.Fields(u.Permissions) {
		if perm == codename {
			return true
		}
	}
	return false
}

// VIPUser carries an admin-configured referral percent that replaces the
// tiered default for this upline.
type VIPUser struct {
	Id        uint            `json:"id" gorm:"primarykey"`
	CreatedAt time.Time       `json:"created_at"`
	UserId    uint            `gorm:"uniqueIndex" json:"user_id"`
	RefProfit decimal.Decimal `gorm:"type:numeric;default:0" json:"referral_profit"` // whole-number percent
}

// ResetToken is a single-use password recovery token.
type ResetToken struct {
	Id        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UserId    uint      `gorm:"index" json:"user_id"`
	Key       string    `gorm:"uniqueIndex" json:"key"`
}
