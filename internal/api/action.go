package api

import (
	"net/http"
	"strconv"

	"akvilon/internal/akv"

	"github.com/gin-gonic/gin"
)

func idoParam(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad ido id"})
		return 0, false
	}
	return uint(id), true
}

func ListIdos(c *gin.Context) {
	app := getApp(c)

	var idos []akv.IDO
	res := app.Db.Order("id desc").Find(&idos)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"idos": idos})
}

func GetIdo(c *gin.Context) {
	app := getApp(c)
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

	var participants int64
	app.Db.Model(&akv.IDOParticipant{}).Where("ido_id = ?", idoId).Count(&participants)

	c.JSON(http.StatusOK, gin.H{
		"ido":          ido,
		"participants": participants,
		"places":       ido.CountParticipants(),
	})
}

func ParticipateIdo(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	participant, err := akv.Participate(app.Db, user.Id, idoId)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": participant})
}

func RefundIdo(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	if err := akv.RefundParticipation(app.Db, user.Id, idoId); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func JoinIdoQueue(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
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

	entry, err := akv.JoinQueue(app.Db, &user, &ido)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

func LeaveIdoQueue(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	if err := akv.LeaveQueue(app.Db, user.Id, idoId); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func GetIdoQueue(c *gin.Context) {
	app := getApp(c)
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	queue, err := akv.ListQueue(app.Db, idoId)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": queue})
}

// ClaimIdoTokens delivers pending token transfers and settles their
// value onto the balance.
func ClaimIdoTokens(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	credited, err := akv.ClaimTokens(app.Db, user.Id, idoId)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credited": credited})
}

func GetMyIdoStats(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := akv.CollectUserIdoStats(app.Db, user.Id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func ListNews(c *gin.Context) {
	app := getApp(c)

	var news []akv.News
	res := app.Db.Order("id desc").Find(&news)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"news": news})
}

// CheckIdoClaim runs the payout validations without moving anything.
func CheckIdoClaim(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	var ido akv.IDO
	res := app.Db.First(&ido, idoId)
	if res.RowsAffected != 1 || ido.CoinId == nil {
		fail(c, akv.ErrIdoNotFound)
		return
	}
	if err := akv.TryTakeoffTokens(app.Db, user.Id, idoId, *ido.CoinId); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
