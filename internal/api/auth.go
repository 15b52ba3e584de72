package api

import (
	"fmt"
	"net/http"
	"regexp"

	"akvilon/internal/akv"
	"akvilon/internal/api/jwt"
	"akvilon/internal/mail"

	"github.com/dchest/uniuri"
	"github.com/google/uuid"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

type registerParams struct {
	Email      string `json:"email" binding:"required" validate:"required,max=254"`
	Password   string `json:"password" binding:"required" validate:"required,min=8,max=128"`
	FirstName  string `json:"first_name" validate:"max=150"`
	LastName   string `json:"last_name" validate:"max=150"`
	InviteCode string `json:"invite_code" binding:"required" validate:"required,max=16"`
}

type loginParams struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type resetParams struct {
	Email string `json:"email" binding:"required"`
}

type resetConfirmParams struct {
	Key      string `json:"key" binding:"required"`
	Password string `json:"password" binding:"required" validate:"required,min=8,max=128"`
}

var emailCheck = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const inviteCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func newInviteCode(app *akv.App) string {
	for {
		code := uniuri.NewLenChars(8, []byte(inviteCodeChars))
		var double akv.User
		res := app.Db.Where("invite_code = ?", code).First(&double)
		if res.RowsAffected == 1 {
			continue
		}
		return code
	}
}

// Register creates an account under the inviter who issued the code.
func Register(c *gin.Context) {
	app := getApp(c)
	var registerP registerParams
	if err := c.ShouldBindJSON(&registerP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !emailCheck.MatchString(registerP.Email) {
		fail(c, akv.ErrBadEmail)
		return
	}

	var double akv.User
	res := app.Db.Where("email = ?", registerP.Email).First(&double)
	if res.RowsAffected == 1 {
		fail(c, akv.ErrUserExists)
		return
	}

	var inviter akv.User
	res = app.Db.Where("invite_code = ?", registerP.InviteCode).First(&inviter)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrInviterUnknown)
		return
	}
	if !inviter.CanInvite {
		fail(c, akv.ErrInviterForbidden)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(registerP.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	user := akv.User{
		Email:        registerP.Email,
		FirstName:    registerP.FirstName,
		LastName:     registerP.LastName,
		PasswordHash: string(hash),
		IsActive:     true,
		CanInvite:    true,
		Status:       akv.StatusNotActive,
		InviteCode:   newInviteCode(app),
	}
	if err := akv.AssignInviter(app.Db, &user, &inviter); err != nil {
		fail(c, err)
		return
	}
	res = app.Db.Create(&user)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}

	go func() {
		_ = akv.SendTelegramMessage(fmt.Sprintf("New signup: user %d, line %d", user.Id, user.Line), "signup")
	}()

	token, err := jwt.GenerateJWT(user.Id, user.Email, user.IsStaff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user": user.Data(),
		"jwt":  token,
	})
}

func Login(c *gin.Context) {
	app := getApp(c)
	var loginP loginParams
	if err := c.ShouldBindJSON(&loginP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user akv.User
	res := app.Db.Where("email = ?", loginP.Email).First(&user)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrLoginFailed)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginP.Password)); err != nil {
		fail(c, akv.ErrLoginFailed)
		return
	}

	token, err := jwt.GenerateJWT(user.Id, user.Email, user.IsStaff)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": user.Data(),
		"jwt":  token,
	})
}

// ResetRequest mails a one time recovery key. The response is the same
// whether the account exists or not.
func ResetRequest(c *gin.Context) {
	app := getApp(c)
	var resetP resetParams
	if err := c.ShouldBindJSON(&resetP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user akv.User
	res := app.Db.Where("email = ?", resetP.Email).First(&user)
	if res.RowsAffected == 1 {
		token := akv.ResetToken{
			UserId: user.Id,
			Key:    uuid.NewString(),
		}
		res = app.Db.Create(&token)
		if res.Error == nil {
			go func() {
				if err := mail.SendResetKey(user.Email, token.Key); err != nil {
					fmt.Println("mail: reset key not sent:", err)
				}
			}()
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func ResetConfirm(c *gin.Context) {
	app := getApp(c)
	var confirmP resetConfirmParams
	if err := c.ShouldBindJSON(&confirmP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if confirmP.Password == "" {
		fail(c, akv.ErrEmptyPassword)
		return
	}

	var token akv.ResetToken
	res := app.Db.Where("key = ?", confirmP.Key).First(&token)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrTokenNotFound)
		return
	}

	var user akv.User
	res = app.Db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, token.UserId)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrUserNotFound)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(confirmP.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	user.PasswordHash = string(hash)
	res = app.Db.Save(&user)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	app.Db.Delete(&akv.ResetToken{}, token.Id)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type resetKeyParams struct {
	Key string `json:"key" binding:"required"`
}

// ResetCheck verifies a recovery key without consuming it, so the
// frontend can reject a dead link before asking for a new password.
func ResetCheck(c *gin.Context) {
	app := getApp(c)
	var keyP resetKeyParams
	if err := c.ShouldBindJSON(&keyP); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var token akv.ResetToken
	res := app.Db.Where("key = ?", keyP.Key).First(&token)
	if res.RowsAffected != 1 {
		fail(c, akv.ErrTokenNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
