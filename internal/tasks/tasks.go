package tasks

import (
	"context"
	"fmt"
	"time"

	"akvilon/internal/akv"
	"akvilon/internal/oracle"
	"akvilon/internal/worker"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TypePriceRefresh = "prices:refresh"
	TypeWalletScan   = "scan:wallets"
)

func NewPriceRefreshTask() *asynq.Task {
	return asynq.NewTask(TypePriceRefresh, nil, asynq.Queue("prices"), asynq.MaxRetry(1))
}

func NewWalletScanTask() *asynq.Task {
	return asynq.NewTask(TypeWalletScan, nil, asynq.Queue("scan"), asynq.MaxRetry(1))
}

// Handler carries the dependencies shared by the background jobs.
type Handler struct {
	Db     *gorm.DB
	Rdb    *redis.Client
	Oracle *oracle.Client
	Pool   *worker.Pool
}

func NewMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePriceRefresh, h.HandlePriceRefresh)
	mux.HandleFunc(TypeWalletScan, h.HandleWalletScan)
	return mux
}

func RegisterSchedules(scheduler *asynq.Scheduler) error {
	if _, err := scheduler.Register("@every 10m", NewPriceRefreshTask()); err != nil {
		return err
	}
	if _, err := scheduler.Register("@every 3m", NewWalletScanTask()); err != nil {
		return err
	}
	return nil
}

// HandlePriceRefresh pulls the settlement coin price from coingecko
// and reprices every other coin relative to it, falling back to the
// pancakeswap token list for coins coingecko does not carry.
func (h *Handler) HandlePriceRefresh(ctx context.Context, t *asynq.Task) error {
	quote, err := akv.GetQuoteCoin(h.Db)
	if err != nil {
		return err
	}

	quotePrice, err := h.lookupPrice(quote.Name)
	if err != nil {
		fmt.Println("prices: quote lookup failed:", err)
	} else if quotePrice.Sign() > 0 {
		quote.CostInBusd = quotePrice
		res := h.Db.Save(&quote)
		if res.Error != nil {
			return res.Error
		}
	}
	if quote.CostInBusd.Sign() <= 0 {
		quote.CostInBusd = decimal.NewFromInt(1)
	}

	var coins []akv.Coin
	res := h.Db.Where("name <> ?", akv.QuoteCoin).Find(&coins)
	if res.Error != nil {
		return res.Error
	}
	for i := range coins {
		price, err := h.lookupPrice(coins[i].Name)
		if err != nil {
			fmt.Println("prices: skipping", coins[i].Name, ":", err)
			continue
		}
		coins[i].CostInBusd = price.Mul(quote.CostInBusd)
		res = h.Db.Save(&coins[i])
		if res.Error != nil {
			return res.Error
		}
		time.Sleep(2 * time.Second)
	}
	return nil
}

func (h *Handler) lookupPrice(symbol string) (decimal.Decimal, error) {
	coinId, err := h.Oracle.CoinGeckoId(symbol)
	if err == nil {
		price, err := h.Oracle.CoinGeckoPrice(coinId)
		if err == nil {
			return price, nil
		}
	}
	return h.Oracle.PancakePrice(symbol)
}

type walletScan struct {
	handler *Handler
	wallet  akv.AdminWallet
	ido     akv.IDO
}

func (s walletScan) Execute() {
	address, err := s.wallet.WalletAddress(s.handler.Db)
	if err != nil {
		fmt.Println("scan: wallet has no address:", err)
		return
	}
	var contract akv.Address
	res := s.handler.Db.First(&contract, *s.ido.SmartcontractId)
	if res.Error != nil {
		fmt.Println("scan: contract address missing:", res.Error)
		return
	}

	raw, err := s.handler.Oracle.TokenBalance(contract.Address, address.Address)
	if err != nil {
		fmt.Println("scan: balance lookup failed:", err)
		return
	}
	chainBalance, err := decimal.NewFromString(raw)
	if err != nil {
		fmt.Println("scan: bad balance value:", raw)
		return
	}
	chainBalance = chainBalance.Shift(-s.wallet.Decimal)

	cacheKey := fmt.Sprintf("wallet_scan_%d", s.wallet.Id)
	lastSeen := decimal.Zero
	lastSeenRaw, _ := s.handler.Rdb.Get(context.Background(), cacheKey).Result()
	if len(lastSeenRaw) > 0 {
		if parsed, err := decimal.NewFromString(lastSeenRaw); err == nil {
			lastSeen = parsed
		}
	}

	if chainBalance.LessThanOrEqual(lastSeen) {
		return
	}
	diff := chainBalance.Sub(lastSeen)
	fmt.Println("scan: wallet", s.wallet.Id, "received", diff)

	coin, err := akv.GetCoinForAdminWallet(s.handler.Db, s.wallet)
	if err != nil {
		fmt.Println("scan:", err)
		return
	}
	if _, err := akv.FillAdminWallet(s.handler.Db, coin.Id, address.Address, diff); err != nil {
		fmt.Println("scan: fill failed:", err)
		return
	}
	if err := akv.DistributeTokens(s.handler.Db, s.ido.Id); err != nil {
		fmt.Println("scan: distribute failed:", err)
		return
	}
	s.handler.Rdb.Set(context.Background(), cacheKey, chainBalance.String(), 0)
}

// HandleWalletScan fans the platform's token wallets out over the
// worker pool and distributes anything that landed on-chain since the
// previous pass.
func (h *Handler) HandleWalletScan(ctx context.Context, t *asynq.Task) error {
	var idos []akv.IDO
	res := h.Db.Where("smartcontract_id IS NOT NULL AND charge_manually = ?", false).Find(&idos)
	if res.Error != nil {
		return res.Error
	}

	for _, ido := range idos {
		if ido.CoinId == nil {
			continue
		}
		wallet, err := akv.AdminWalletForCoin(h.Db, *ido.CoinId)
		if err != nil {
			if err == akv.ErrMainWalletMissing {
				continue
			}
			return err
		}
		h.Pool.Exec(walletScan{handler: h, wallet: *wallet, ido: ido})
	}
	return nil
}
