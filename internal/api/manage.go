package api

import (
	"net/http"
	"time"

	"akvilon/internal/akv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type idoParams struct {
	Name              string          `json:"name" binding:"required" validate:"required,max=150"`
	Description       string          `json:"description"`
	GeneralAllocation decimal.Decimal `json:"general_allocation" binding:"required"`
	PersonAllocation  decimal.Decimal `json:"person_allocation" binding:"required"`
	BuyDate           time.Time       `json:"buy_date"`
	Tge               time.Time       `json:"tge"`
	Vesting           string          `json:"vesting"`
	SmartcontractId   *uint           `json:"smartcontract_id"`
	ExchangeId        *uint           `json:"exchange_id"`
	CoinId            *uint           `json:"coin_id"`
	Commission        decimal.Decimal `json:"commission"`
	TelegramAcc       string          `json:"telegram_acc"`
	TwitterAcc        string          `json:"twitter_acc"`
	DiscordAcc        string          `json:"discord_acc"`
	Site              string          `json:"site"`
	WhitePaper        string          `json:"white_paper"`
	WithoutPay        bool            `json:"without_pay"`
	ChargeManually    bool            `json:"charge_manually"`
	Image             string          `json:"image"`
}

func (p idoParams) apply(ido *akv.IDO) {
	ido.Name = p.Name
	ido.Description = p.Description
	ido.GeneralAllocation = p.GeneralAllocation
	ido.PersonAllocation = p.PersonAllocation
	ido.BuyDate = p.BuyDate
	ido.Tge = p.Tge
	ido.Vesting = p.Vesting
	ido.SmartcontractId = p.SmartcontractId
	ido.ExchangeId = p.ExchangeId
	ido.CoinId = p.CoinId
	ido.Commission = p.Commission
	ido.TelegramAcc = p.TelegramAcc
	ido.TwitterAcc = p.TwitterAcc
	ido.DiscordAcc = p.DiscordAcc
	ido.Site = p.Site
	ido.WhitePaper = p.WhitePaper
	ido.WithoutPay = p.WithoutPay
	ido.ChargeManually = p.ChargeManually
	ido.Image = p.Image
}

func CreateIdo(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "add_ido") {
		return
	}

	var idoP idoParams
	if err := c.ShouldBindJSON(&idoP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if idoP.PersonAllocation.Sign() <= 0 || idoP.GeneralAllocation.LessThan(idoP.PersonAllocation) {
		fail(c, akv.ErrBadAmount)
		return
	}

	if idoP.SmartcontractId != nil {
		var double akv.IDO
		res := app.Db.Where("smartcontract_id = ?", *idoP.SmartcontractId).First(&double)
		if res.RowsAffected == 1 {
			fail(c, akv.ErrContractExists)
			return
		}
	}

	var ido akv.IDO
	idoP.apply(&ido)
	res := app.Db.Create(&ido)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ido": ido})
}

func UpdateIdo(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_ido") {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	var idoP idoParams
	if err := c.ShouldBindJSON(&idoP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if idoP.PersonAllocation.Sign() <= 0 || idoP.GeneralAllocation.LessThan(idoP.PersonAllocation) {
		fail(c, akv.ErrBadAmount)
		return
	}

	var ido akv.IDO
	res := app.Db.First(&ido, idoId)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrIdoNotFound)
		return
	}
	idoP.apply(&ido)
	res = app.Db.Save(&ido)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}

	// a shrunken pool refunds whoever no longer fits
	displaced, err := akv.RefundDisplacedParticipants(app.Db, &ido)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ido": ido, "displaced": displaced})
}

func DeleteIdo(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "delete_ido") {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	var ido akv.IDO
	res := app.Db.First(&ido, idoId)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrIdoNotFound)
		return
	}

	if err := akv.UnwindParticipants(app.Db, &ido); err != nil {
		fail(c, err)
		return
	}

	res = app.Db.Delete(&akv.IDO{}, idoId)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	app.Db.Where("ido_id = ?", idoId).Delete(&akv.QueueUser{})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type coinParams struct {
	Name    string `json:"name" binding:"required" validate:"required,max=20"`
	Network string `json:"network"`
}

func CreateCoin(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "add_coin") {
		return
	}

	var coinP coinParams
	if err := c.ShouldBindJSON(&coinP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coin := akv.Coin{Name: coinP.Name, Network: coinP.Network}
	res := app.Db.Create(&coin)
	if res.Error != nil {
		c.JSON(http.StatusConflict, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"coin": coin})
}

func ListCoins(c *gin.Context) {
	app := getApp(c)

	var coins []akv.Coin
	res := app.Db.Order("id asc").Find(&coins)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coins": coins})
}

type newsParams struct {
	Header string `json:"header" binding:"required" validate:"required,max=250"`
	Body   string `json:"body"`
	Image  string `json:"image"`
}

func CreateNews(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "add_news") {
		return
	}

	var newsP newsParams
	if err := c.ShouldBindJSON(&newsP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	news := akv.News{Header: newsP.Header, Body: newsP.Body, Image: newsP.Image}
	res := app.Db.Create(&news)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"news": news})
}

func UpdateNews(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_news") {
		return
	}
	newsId, ok := idoParam(c)
	if !ok {
		return
	}

	var newsP newsParams
	if err := c.ShouldBindJSON(&newsP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var news akv.News
	res := app.Db.First(&news, newsId)
	if res.RowsAffected != 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "news not found"})
		return
	}
	news.Header = newsP.Header
	news.Body = newsP.Body
	news.Image = newsP.Image
	res = app.Db.Save(&news)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": news})
}

func DeleteNews(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "delete_news") {
		return
	}
	newsId, ok := idoParam(c)
	if !ok {
		return
	}

	res := app.Db.Delete(&akv.News{}, newsId)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "news not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
