package api

import (
	"net/http"
	"time"

	"akvilon/internal/akv"
	"akvilon/internal/evm"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/spruceid/siwe-go"
)

func GetBalance(c *gin.Context) {
	app := getApp(c)
	address := c.Param("address")

	if !evm.IsValidAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address format"})
		return
	}

	balance, err := app.Rpc.GetBalance(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balance": balance.String()})
}

func GetGasPrice(c *gin.Context) {
	app := getApp(c)

	gasPrice, err := app.Rpc.GetGasPrice()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"gas_price": gasPrice})
}

// Nonce issues a short lived SIWE nonce for the address, held in redis
// so unbound addresses never touch the db.
func Nonce(c *gin.Context) {
	app := getApp(c)
	address := c.Param("address")

	if !evm.IsValidAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address format"})
		return
	}

	nonce := siwe.GenerateNonce()

	err := app.Rdb.Set(ctx, address, nonce, 1*time.Minute).Err()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce": nonce,
	})
}

type bindWalletParams struct {
	Message   string `json:"message" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// BindWallet attaches a signature-verified external address to the
// authenticated account, one address per account.
func BindWallet(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var bindP bindWalletParams
	if err := c.ShouldBindJSON(&bindP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	siweMessage, err := siwe.ParseMessage(bindP.Message)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr := siweMessage.GetAddress().String()
	nonce, err := app.Rdb.Get(ctx, addr).Result()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nonce expired"})
		return
	}
	domain := siweMessage.GetDomain()
	publicKey, err := siweMessage.Verify(bindP.Signature, &domain, &nonce, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addr = crypto.PubkeyToAddress(*publicKey).Hex()

	var bound akv.MetamaskWallet
	res := app.Db.Where("user_id = ?", user.Id).First(&bound)
	if res.RowsAffected == 1 {
		fail(c, akv.ErrWalletBound)
		return
	}

	var address akv.Address
	res = app.Db.Where("address = ?", addr).First(&address)
	if res.RowsAffected != 1 {
		address = akv.Address{Address: addr}
		res = app.Db.Create(&address)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
			return
		}
	} else {
		var taken akv.MetamaskWallet
		res = app.Db.Where("address_id = ?", address.Id).First(&taken)
		if res.RowsAffected == 1 {
			fail(c, akv.ErrWalletBound)
			return
		}
	}

	wallet := akv.MetamaskWallet{UserId: user.Id, AddressId: address.Id}
	res = app.Db.Create(&wallet)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": addr})
}

// GetWallet returns the caller's bound wallet address, if any.
func GetWallet(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	address, err := akv.UserWallet(app.Db, user.Id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address.Address})
}
