package server

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"akvilon/internal/akv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

func getCurrentBlockNumber(client *ethclient.Client) (uint64, error) {
	header, err := client.HeaderByNumber(context.Background(), nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Uint64(), nil
}

// TrackInit runs the deposit tracker. It tails Transfer events of the
// settlement token towards the reserve wallet and credits the sender's
// account when the sender address is bound to a user.
func TrackInit() {
	ConfigLoad()
	app := akv.Init()

	web3Conn, err := ethclient.Dial(os.Getenv("RPC_PROVIDER_URL"))
	if err != nil {
		Logger.Error("Track: rpc dial failed: " + err.Error())
		return
	}
	go trackDeposits(app, web3Conn)
	for {
		time.Sleep(10 * time.Minute)
	}
}

func trackDeposits(app *akv.App, web3Conn *ethclient.Client) {
	mainWallet, err := akv.GetMainWallet(app.Db)
	if err != nil {
		fmt.Println("Track: no reserve wallet configured:", err)
		return
	}
	mainAddress, err := mainWallet.WalletAddress(app.Db)
	if err != nil {
		fmt.Println("Track:", err)
		return
	}

	fromBlock, err := getCurrentBlockNumber(web3Conn)
	if err != nil {
		fmt.Println("Track: block number error:", err)
		return
	}
	fromBlock -= 20
	tokenAddr := common.HexToAddress(os.Getenv("BUSD_CONTRACT_ADDRESS"))
	walletTopic := common.BytesToHash(common.LeftPadBytes(common.HexToAddress(mainAddress.Address).Bytes(), 32))

	for {
		query := ethereum.FilterQuery{
			Addresses: []common.Address{tokenAddr},
			FromBlock: new(big.Int).SetUint64(fromBlock),
			Topics: [][]common.Hash{
				{transferTopic},
				nil,
				{walletTopic},
			},
		}
		logs, err := web3Conn.FilterLogs(context.Background(), query)
		if err != nil {
			fmt.Println("Track: logs reading error:", err)
			time.Sleep(30 * time.Second)
			continue
		}
		for _, vLog := range logs {
			if err := creditDepositLog(app, vLog); err != nil {
				fmt.Println("Track:", err)
			}
			if vLog.BlockNumber >= fromBlock {
				fromBlock = vLog.BlockNumber + 1
			}
		}
		time.Sleep(30 * time.Second)
	}
}

func creditDepositLog(app *akv.App, vLog types.Log) error {
	if len(vLog.Topics) < 3 || len(vLog.Data) < 32 {
		return nil
	}
	sender := common.BytesToAddress(vLog.Topics[1].Bytes()).Hex()

	var address akv.Address
	res := app.Db.Where("address = ?", sender).First(&address)
	if res.RowsAffected != 1 {
		// Transfer from an address we do not know, nothing to credit
		return nil
	}
	var wallet akv.MetamaskWallet
	res = app.Db.Where("address_id = ?", address.Id).First(&wallet)
	if res.RowsAffected != 1 {
		return nil
	}

	raw := new(big.Int).SetBytes(vLog.Data[:32])
	amount := decimal.NewFromBigInt(raw, -18)
	if amount.Sign() <= 0 {
		return nil
	}

	seenKey := fmt.Sprintf("deposit_seen_%s_%d", vLog.TxHash.Hex(), vLog.Index)
	set, err := app.Rdb.SetNX(context.Background(), seenKey, "y", 48*time.Hour).Result()
	if err == nil && !set {
		return nil
	}

	if err := akv.ApplyDeposit(app.Db, wallet.UserId, address.Id, amount); err != nil {
		return err
	}
	_ = app.Rdb.Publish(context.Background(), fmt.Sprintf("balance_ch@%d", wallet.UserId), "sync").Err()

	go func() {
		_ = akv.SendTelegramMessage(fmt.Sprintf("Deposit: user %d, amount %s", wallet.UserId, amount), "finance")
	}()
	return nil
}
