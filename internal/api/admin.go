package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"akvilon/internal/akv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

func requirePerm(c *gin.Context, codename string) bool {
	user, ok := currentUser(c)
	if !ok {
		return false
	}
	if !user.HasPerm(codename) {
		fail(c, akv.ErrPermissionDenied)
		return false
	}
	return true
}

func userParam(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad user id"})
		return 0, false
	}
	return uint(id), true
}

func GetPlatformStats(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "view_stats") {
		return
	}

	stats, err := akv.CollectPlatformStats(app.Db)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetIncomeReport aggregates platform income between from and to,
// given as RFC3339 dates. Defaults to the current day.
func GetIncomeReport(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "view_stats") {
		return
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad from date"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad to date"})
			return
		}
		to = parsed
	}

	report, err := akv.CollectIncomeReport(app.Db, from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func GetMonthlyIncome(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "view_stats") {
		return
	}

	reports, err := akv.MonthlyIncome(app.Db, time.Now())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func ListUsers(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "view_user") {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 || size > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maximum size is 100"})
		return
	}

	var total int64
	res := app.Db.Model(&akv.User{}).Count(&total)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}

	var users []akv.User
	res = app.Db.Order("id asc").Limit(size).Offset((page - 1) * size).Find(&users)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	out := make([]akv.UserData, 0, len(users))
	for i := range users {
		out = append(out, users[i].Data())
	}

	next := ""
	if total > int64(page*size) {
		next = fmt.Sprintf("/admin/users/?page=%d&size=%d", page+1, size)
	}
	previous := ""
	if page > 1 {
		previous = fmt.Sprintf("/admin/users/?page=%d&size=%d", page-1, size)
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    total,
		"next":     next,
		"previous": previous,
		"results":  out,
	})
}

type vipParams struct {
	RefProfit decimal.Decimal `json:"referral_profit" binding:"required"`
}

// SetVIP grants a personal referral percent that replaces the tiered
// default.
func SetVIP(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_user") {
		return
	}
	userId, ok := userParam(c)
	if !ok {
		return
	}

	var vipP vipParams
	if err := c.ShouldBindJSON(&vipP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if vipP.RefProfit.Sign() <= 0 || vipP.RefProfit.GreaterThan(decimal.NewFromInt(35)) {
		fail(c, akv.ErrBadPercent)
		return
	}

	var target akv.User
	res := app.Db.First(&target, userId)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrUserNotFound)
		return
	}

	var vip akv.VIPUser
	res = app.Db.Where("user_id = ?", userId).First(&vip)
	if res.RowsAffected == 1 {
		vip.RefProfit = vipP.RefProfit
		res = app.Db.Save(&vip)
	} else {
		vip = akv.VIPUser{UserId: userId, RefProfit: vipP.RefProfit}
		res = app.Db.Create(&vip)
	}
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vip": vip})
}

func ClearVIP(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_user") {
		return
	}
	userId, ok := userParam(c)
	if !ok {
		return
	}

	res := app.Db.Where("user_id = ?", userId).Delete(&akv.VIPUser{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected == 0 {
		fail(c, akv.ErrUserNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type placeParams struct {
	Place int `json:"place" binding:"required"`
}

func SetUserPermanentPlace(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_user") {
		return
	}
	userId, ok := userParam(c)
	if !ok {
		return
	}

	var placeP placeParams
	if err := c.ShouldBindJSON(&placeP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := akv.SetPermanentPlace(app.Db, userId, placeP.Place); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ClearUserPermanentPlace(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_user") {
		return
	}
	userId, ok := userParam(c)
	if !ok {
		return
	}

	if err := akv.ClearPermanentPlace(app.Db, userId); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type canInviteParams struct {
	CanInvite bool `json:"can_invite"`
}

func SetCanInvite(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_user") {
		return
	}
	userId, ok := userParam(c)
	if !ok {
		return
	}

	var inviteP canInviteParams
	if err := c.ShouldBindJSON(&inviteP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var target akv.User
	res := app.Db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&target, userId)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrUserNotFound)
		return
	}
	target.CanInvite = inviteP.CanInvite
	res = app.Db.Save(&target)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": target.Data()})
}

type depositParams struct {
	UserId        uint            `json:"user_id" binding:"required"`
	FromAddressId uint            `json:"from_address_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
}

// ApplyUserDeposit credits a manually confirmed incoming transfer.
func ApplyUserDeposit(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "add_transaction") {
		return
	}

	var depositP depositParams
	if err := c.ShouldBindJSON(&depositP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := akv.ApplyDeposit(app.Db, depositP.UserId, depositP.FromAddressId, depositP.Amount); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type fillWalletParams struct {
	CoinId  uint            `json:"coin_id" binding:"required"`
	Address string          `json:"address" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

func FillTokenWallet(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_adminwallet") {
		return
	}

	var fillP fillWalletParams
	if err := c.ShouldBindJSON(&fillP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := akv.FillAdminWallet(app.Db, fillP.CoinId, fillP.Address, fillP.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func TriggerDistribute(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_ido") {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	if err := akv.DistributeTokens(app.Db, idoId); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type addParticipantParams struct {
	UserId uint `json:"user_id" binding:"required"`
}

// AddParticipant preseeds a free round with a participant. Only rounds
// flagged without_pay accept this.
func AddParticipant(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_ido") {
		return
	}
	idoId, ok := idoParam(c)
	if !ok {
		return
	}

	var addP addParticipantParams
	if err := c.ShouldBindJSON(&addP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ido akv.IDO
	res := app.Db.First(&ido, idoId)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrIdoNotFound)
		return
	}
	if !ido.WithoutPay {
		fail(c, akv.ErrWithoutPayDisabled)
		return
	}

	var existing akv.IDOParticipant
	res = app.Db.Where("ido_id = ? AND user_id = ?", idoId, addP.UserId).First(&existing)
	if res.RowsAffected == 1 {
		fail(c, akv.ErrAlreadyParticipant)
		return
	}

	var booked decimal.Decimal
	res = app.Db.Model(&akv.IDOParticipant{}).Where("ido_id = ?", idoId).
		Select("COALESCE(SUM(allocation), 0)").Scan(&booked)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if booked.Add(ido.PersonAllocation).GreaterThan(ido.GeneralAllocation) {
		fail(c, akv.ErrAllocationDrained)
		return
	}

	participant := akv.IDOParticipant{
		IdoId:      idoId,
		UserId:     addP.UserId,
		Allocation: ido.PersonAllocation,
	}
	res = app.Db.Create(&participant)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": participant})
}

func GetUserIdoStats(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "view_stats") {
		return
	}
	userId, ok := userParam(c)
	if !ok {
		return
	}

	stats, err := akv.CollectUserIdoStats(app.Db, userId)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

type permParams struct {
	Permissions string `json:"permissions"`
}

// SetPermissions replaces a user's permission codenames. Superusers
// only, a staffer must not be able to widen their own grants.
func SetPermissions(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if !user.IsSuperuser {
		fail(c, akv.ErrPermissionDenied)
		return
	}
	userId, ok := userParam(c)
	if !ok {
		return
	}

	var permP permParams
	if err := c.ShouldBindJSON(&permP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var target akv.User
	res := app.Db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&target, userId)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrUserNotFound)
		return
	}
	target.Permissions = permP.Permissions
	res = app.Db.Save(&target)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": target.Data()})
}

func ListVIPs(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "view_user") {
		return
	}

	var vips []akv.VIPUser
	res := app.Db.Order("id asc").Find(&vips)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vips": vips})
}

func ListPermanentPlaces(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "view_user") {
		return
	}

	var users []akv.User
	res := app.Db.Where("permanent_place IS NOT NULL").Order("permanent_place asc").Find(&users)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	places := make([]gin.H, 0, len(users))
	for i := range users {
		places = append(places, gin.H{"user": users[i].Data(), "place": users[i].PermanentPlace})
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

// GetUserPartners is the staff view of any user's downline.
func GetUserPartners(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "view_user") {
		return
	}
	userId, ok := userParam(c)
	if !ok {
		return
	}

	partners, err := akv.DirectPartners(app.Db, userId)
	if err != nil {
		fail(c, err)
		return
	}
	stats, err := akv.CollectDownlineStats(akv.DbChildLoader(app.Db), userId)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": partners, "stats": stats})
}

func ListAdminWallets(c *gin.Context) {
	app := getApp(c)
	if !requirePerm(c, "change_adminwallet") {
		return
	}

	var wallets []akv.AdminWallet
	res := app.Db.Order("id asc").Find(&wallets)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}
