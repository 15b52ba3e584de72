package api

import (
	"net/http"

	"akvilon/internal/akv"

	"github.com/gin-gonic/gin"
)

func GetUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.Data()})
}

// GetPartners lists the direct invitees plus the full downline counts.
func GetPartners(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	partners, err := akv.DirectPartners(app.Db, user.Id)
	if err != nil {
		fail(c, err)
		return
	}
	stats, err := akv.CollectDownlineStats(akv.DbChildLoader(app.Db), user.Id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"partners": partners,
		"stats":    stats,
	})
}

// GetUpline shows the chain that earns from this account.
func GetUpline(c *gin.Context) {
	app := getApp(c)
	user, ok := currentUser(c)
	if !ok {
		return
	}

	chain, err := akv.UplineChain(app.Db, &user, akv.MaxCommissionLevels)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]akv.UserData, 0, len(chain))
	for i := range chain {
		out = append(out, chain[i].Data())
	}
	c.JSON(http.StatusOK, gin.H{"upline": out})
}
