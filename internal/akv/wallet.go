package akv

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Address maps an external blockchain address to a user wallet or a
// smart contract. Admin-owned addresses belong to the platform.
type Address struct {
	Id         uint      `json:"id" gorm:"primarykey"`
	CreatedAt  time.Time `json:"created_at"`
	Address    string    `gorm:"uniqueIndex;not null" json:"address"`
	CoinId     *uint     `json:"coin_id"`
	OwnerAdmin bool      `gorm:"index" json:"owner_admin"`
}

// MetamaskWallet binds an external address to a user account, one per user.
type MetamaskWallet struct {
	Id        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UserId    uint      `gorm:"uniqueIndex" json:"user_id"`
	AddressId uint      `json:"address_id"`
}

// AdminWallet is a platform wallet. Balance is denormalized; Decimal is the
// fixed-point scale used for every amount settled through this wallet.
type AdminWallet struct {
	Id        uint            `json:"id" gorm:"primarykey"`
	CreatedAt time.Time       `json:"created_at"`
	AddressId uint            `gorm:"uniqueIndex" json:"address_id"`
	Balance   decimal.Decimal `gorm:"type:numeric;default:0" json:"balance"`
	Decimal   int32           `gorm:"default:2" json:"decimal"`
}

type Coin struct {
	Id         uint            `json:"id" gorm:"primarykey"`
	CreatedAt  time.Time       `json:"created_at"`
	Name       string          `gorm:"uniqueIndex;not null" json:"name"`
	Network    string          `json:"network"`
	CostInBusd decimal.Decimal `gorm:"type:numeric;default:0" json:"cost_in_busd"`
}

type Exchange struct {
	Id        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
}

const (
	QuoteCoin    = "BUSD"
	QuoteNetwork = "BEP20"
)

// GetQuoteCoin returns the BUSD quote coin, creating it on first use.
func GetQuoteCoin(db *gorm.DB) (coin Coin, err error) {
	res := db.Where("name = ?", QuoteCoin).First(&coin)
	if res.RowsAffected == 1 {
		return coin, nil
	}
	coin = Coin{Name: QuoteCoin, Network: QuoteNetwork}
	if res := db.Create(&coin); res.Error != nil {
		return coin, res.Error
	}
	return coin, nil
}

// GetMainWallet returns the platform BUSD reserve wallet.
func GetMainWallet(db *gorm.DB) (wallet AdminWallet, err error) {
	coin, err := GetQuoteCoin(db)
	if err != nil {
		return wallet, err
	}
	var address Address
	res := db.Where("owner_admin = ? AND coin_id = ?", true, coin.Id).First(&address)
	if res.RowsAffected != 1 {
		return wallet, ErrMainWalletMissing
	}
	res = db.Where("address_id = ?", address.Id).First(&wallet)
	if res.RowsAffected != 1 {
		return wallet, ErrMainWalletMissing
	}
	return wallet, nil
}

// GetMainWalletForUpdate locks the reserve wallet row inside tx.
func GetMainWalletForUpdate(tx *gorm.DB) (wallet AdminWallet, err error) {
	wallet, err = GetMainWallet(tx)
	if err != nil {
		return wallet, err
	}
	res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", wallet.Id).First(&wallet)
	if res.RowsAffected != 1 {
		return wallet, ErrMainWalletMissing
	}
	return wallet, nil
}

// UserWallet resolves the bound metamask address of a user.
func UserWallet(db *gorm.DB, userId uint) (Address, error) {
	var metamask MetamaskWallet
	res := db.Where("user_id = ?", userId).First(&metamask)
	if res.RowsAffected != 1 {
		return Address{}, ErrWalletNotBound
	}
	var address Address
	res = db.Where("id = ?", metamask.AddressId).First(&address)
	if res.RowsAffected != 1 {
		return Address{}, ErrWalletNotBound
	}
	return address, nil
}

// GetCoinForAdminWallet resolves the coin an admin wallet holds.
func GetCoinForAdminWallet(db *gorm.DB, wallet AdminWallet) (Coin, error) {
	address, err := wallet.WalletAddress(db)
	if err != nil {
		return Coin{}, err
	}
	if address.CoinId == nil {
		return Coin{}, ErrCoinNotFound
	}
	var coin Coin
	res := db.Where("id = ?", *address.CoinId).First(&coin)
	if res.RowsAffected != 1 {
		return Coin{}, ErrCoinNotFound
	}
	return coin, nil
}

// WalletAddress resolves an AdminWallet's address row.
func (w AdminWallet) WalletAddress(db *gorm.DB) (Address, error) {
	var address Address
	res := db.Where("id = ?", w.AddressId).First(&address)
	if res.RowsAffected != 1 {
		return Address{}, errors.New("admin wallet has no address")
	}
	return address, nil
}
