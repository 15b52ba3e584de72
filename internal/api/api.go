package api

import (
	"context"
	"errors"
	"net/http"

	"akvilon/internal/akv"
	"akvilon/internal/api/jwt"

	"github.com/gin-gonic/gin"
)

var ctx = context.Background()

func getApp(c *gin.Context) *akv.App {
	return c.MustGet("app").(*akv.App)
}

// GetUserFromToken lets the websocket layer authenticate a query
// token without importing the jwt package directly.
func GetUserFromToken(token string) (uint, string, bool, error) {
	return jwt.ValidateToken(token)
}

func currentUser(c *gin.Context) (akv.User, bool) {
	app := getApp(c)
	var user akv.User
	res := app.Db.First(&user, c.GetUint("user_id"))
	if res.RowsAffected != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return user, false
	}
	return user, true
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, akv.ErrBadEmail),
		errors.Is(err, akv.ErrBadAmount),
		errors.Is(err, akv.ErrBadPlace),
		errors.Is(err, akv.ErrBadPercent),
		errors.Is(err, akv.ErrEmptyPassword):
		return http.StatusBadRequest
	case errors.Is(err, akv.ErrUserExists),
		errors.Is(err, akv.ErrQueueDuplicate),
		errors.Is(err, akv.ErrAlreadyParticipant),
		errors.Is(err, akv.ErrWalletBound),
		errors.Is(err, akv.ErrContractExists),
		errors.Is(err, akv.ErrInviterCycle):
		return http.StatusConflict
	case errors.Is(err, akv.ErrUserNotFound),
		errors.Is(err, akv.ErrIdoNotFound),
		errors.Is(err, akv.ErrCoinNotFound),
		errors.Is(err, akv.ErrTokenNotFound),
		errors.Is(err, akv.ErrWalletNotBound),
		errors.Is(err, akv.ErrMainWalletMissing),
		errors.Is(err, akv.ErrNotInQueue),
		errors.Is(err, akv.ErrNoTransactions),
		errors.Is(err, akv.ErrNoPermanentPlace):
		return http.StatusNotFound
	case errors.Is(err, akv.ErrLoginFailed):
		return http.StatusUnauthorized
	case errors.Is(err, akv.ErrPermissionDenied),
		errors.Is(err, akv.ErrInviterForbidden),
		errors.Is(err, akv.ErrInviterUnknown):
		return http.StatusForbidden
	case errors.Is(err, akv.ErrCommissionCeiling),
		errors.Is(err, akv.ErrInsufficientFunds),
		errors.Is(err, akv.ErrInsufficientReserve),
		errors.Is(err, akv.ErrHoldLocked),
		errors.Is(err, akv.ErrQueueIneligible),
		errors.Is(err, akv.ErrQueueFull),
		errors.Is(err, akv.ErrAllocationExceeded),
		errors.Is(err, akv.ErrAllocationDrained),
		errors.Is(err, akv.ErrManualQueue),
		errors.Is(err, akv.ErrWithoutPayDisabled),
		errors.Is(err, akv.ErrQuoteTakeoff):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(errStatus(err), gin.H{"error": err.Error()})
}
