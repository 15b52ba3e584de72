package akv

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminWalletForCoin finds the platform's holding wallet for a token.
func AdminWalletForCoin(db *gorm.DB, coinId uint) (*AdminWallet, error) {
	var address Address
	res := db.Where("owner_admin = ? AND coin_id = ?", true, coinId).First(&address)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrMainWalletMissing
		}
		return nil, res.Error
	}
	var wallet AdminWallet
	res = db.Where("address_id = ?", address.Id).First(&wallet)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrMainWalletMissing
		}
		return nil, res.Error
	}
	return &wallet, nil
}

// FillAdminWallet credits the platform's holding wallet for a token,
// creating the wallet on first use.
func FillAdminWallet(db *gorm.DB, coinId uint, addressHex string, amount decimal.Decimal) (*AdminWallet, error) {
	if amount.Sign() <= 0 {
		return nil, ErrBadAmount
	}

	tx := db.Begin()
	defer tx.Rollback()

	var coin Coin
	res := tx.First(&coin, coinId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrCoinNotFound
		}
		return nil, res.Error
	}

	wallet, err := AdminWalletForCoin(tx, coinId)
	if err == ErrMainWalletMissing {
		address := Address{Address: addressHex, CoinId: &coinId, OwnerAdmin: true}
		if res = tx.Create(&address); res.Error != nil {
			return nil, res.Error
		}
		wallet = &AdminWallet{AddressId: address.Id, Decimal: 18}
		if res = tx.Create(wallet); res.Error != nil {
			return nil, res.Error
		}
	} else if err != nil {
		return nil, err
	}

	wallet.Balance = wallet.Balance.Add(amount)
	res = tx.Save(wallet)
	if res.Error != nil {
		return nil, res.Error
	}

	tx.Commit()
	return wallet, nil
}

// DistributeTokens splits the platform's holding of a round's token
// across its participants in proportion to their allocations. The
// transfers stay pending until each participant claims them.
func DistributeTokens(db *gorm.DB, idoId uint) error {
	var ido IDO
	res := db.First(&ido, idoId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrIdoNotFound
		}
		return res.Error
	}
	coinId, err := ido.TokenCoin()
	if err != nil {
		return err
	}

	var coin Coin
	res = db.First(&coin, coinId)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return ErrCoinNotFound
		}
		return res.Error
	}

	var participants []IDOParticipant
	res = db.Where("ido_id = ?", idoId).Order("id asc").Find(&participants)
	if res.Error != nil {
		return res.Error
	}
	if len(participants) == 0 {
		return nil
	}

	totalAllocation := decimal.Zero
	for _, participant := range participants {
		totalAllocation = totalAllocation.Add(participant.Allocation)
	}
	if totalAllocation.Sign() <= 0 {
		return ErrAllocationDrained
	}

	tx := db.Begin()
	defer tx.Rollback()

	wallet, err := AdminWalletForCoin(tx, coin.Id)
	if err != nil {
		return err
	}
	var lockedWallet AdminWallet
	res = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&lockedWallet, wallet.Id)
	if res.Error != nil {
		return res.Error
	}
	pool := lockedWallet.Balance
	if pool.Sign() <= 0 {
		return ErrInsufficientReserve
	}

	for _, participant := range participants {
		share := pool.Mul(participant.Allocation).Div(totalAllocation)

		if walletTo, err := UserWallet(tx, participant.UserId); err == nil {
			transfer := Transaction{
				AddressFromId: lockedWallet.AddressId,
				AddressToId:   walletTo.Id,
				CoinId:        coin.Id,
				Amount:        share,
				Visible:       true,
			}
			if res = tx.Create(&transfer); res.Error != nil {
				return res.Error
			}
		} else if err != ErrWalletNotBound {
			return err
		}
	}

	lockedWallet.Balance = decimal.Zero
	res = tx.Save(&lockedWallet)
	if res.Error != nil {
		return res.Error
	}

	tx.Commit()
	return nil
}
