package jwt

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWTClaim struct {
	UserId  uint   `json:"user_id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

const jwtExpiration = 24 * 7 * time.Hour

func GenerateJWT(userId uint, email string, isStaff bool) (token string, err error) {

	var claims = JWTClaim{
		userId,
		email,
		isStaff,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	resToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	secret := os.Getenv("JWT_SECRET")
	signedToken, err := resToken.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func ValidateToken(signedToken string) (userId uint, email string, isStaff bool, err error) {
	token, err := jwt.ParseWithClaims(signedToken, &JWTClaim{}, func(t *jwt.Token) (interface{}, error) { return []byte(os.Getenv("JWT_SECRET")), nil })
	if err != nil {
		return 0, "", false, err
	}
	claims, ok := token.Claims.(*JWTClaim)
	if !ok {
		return 0, "", false, errors.New("error parsing claims")
	}
	if claims.UserId == 0 || claims.Email == "" {
		return 0, "", false, errors.New("malformed data")
	}

	return claims.UserId, claims.Email, claims.IsStaff, nil
}
