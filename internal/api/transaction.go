package api

import (
	"fmt"
	"net/http"

	"akvilon/internal/akv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type amountParams struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func GetTransactionsList(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	transactions, err := akv.UserTransactions(app.Db, user.Id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// Withdraw pays reserve funds out to the bound wallet.
func Withdraw(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var withdrawP amountParams
	if err := c.ShouldBindJSON(&withdrawP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := akv.TakeOffReserve(app.Db, user.Id, withdrawP.Amount); err != nil {
		fail(c, err)
		return
	}

	go func() {
		_ = akv.SendTelegramMessage(fmt.Sprintf("Withdrawal: user %d, amount %s", user.Id, withdrawP.Amount), "finance")
	}()

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// WithdrawReferral pays referral earnings out to the bound wallet.
func WithdrawReferral(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var withdrawP amountParams
	if err := c.ShouldBindJSON(&withdrawP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := akv.TakeOffReferral(app.Db, user.Id, withdrawP.Amount); err != nil {
		fail(c, err)
		return
	}

	go func() {
		_ = akv.SendTelegramMessage(fmt.Sprintf("Referral withdrawal: user %d, amount %s", user.Id, withdrawP.Amount), "finance")
	}()

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// FillFromReferral moves referral earnings onto the reserve balance.
func FillFromReferral(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var fillP amountParams
	if err := c.ShouldBindJSON(&fillP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := akv.FillFromReferral(app.Db, user.Id, fillP.Amount); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
