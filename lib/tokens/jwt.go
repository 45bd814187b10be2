package tokens

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/makbank/bankhub.go/db/models"
)

const (
	jwtContextKey = "UserJwt"
	// AuthTokenHeader is accepted next to the Authorization bearer header.
	AuthTokenHeader = "x-auth-token"
)

type jwtCustomClaims struct {
	ID int64 `json:"id"`

	jwt.StandardClaims
}

func Middleware(secret []byte) echo.MiddlewareFunc {
	config := middleware.DefaultJWTConfig
	config.ContextKey = jwtContextKey
	config.SigningKey = secret
	config.SigningMethod = middleware.AlgorithmHS256
	config.TokenLookup = "header:" + echo.HeaderAuthorization + ",header:" + AuthTokenHeader
	config.ErrorHandlerWithContext = func(err error, c echo.Context) error {
		c.Logger().Error(err)
		return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"error":   true,
			"code":    1,
			"message": "bad auth",
		})
	}
	config.SuccessHandler = func(c echo.Context) {
		token := c.Get(jwtContextKey).(*jwt.Token)
		claims := token.Claims.(jwt.MapClaims)
		// numbers in MapClaims are decoded as float64
		if id, ok := claims["id"].(float64); ok {
			c.Set("UserID", int64(id))
		}
	}
	userIdRequired := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := c.Get("UserID").(int64); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
					"error":   true,
					"code":    1,
					"message": "bad auth",
				})
			}
			return next(c)
		}
	}
	jwtMiddleware := middleware.JWTWithConfig(config)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(userIdRequired(next))
	}
}

// GenerateAccessToken : Generate Access Token
func GenerateAccessToken(secret []byte, expiryInSeconds int, a *models.Account) (string, error) {
	claims := &jwtCustomClaims{
		a.ID,
		jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Second * time.Duration(expiryInSeconds)).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString(secret)
	if err != nil {
		return "", err
	}

	return t, nil
}
