package jwts

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims 对局内玩家令牌
// 每个玩家在会话创建时签发一枚，后续所有对局动作和账务调用都携带它
type SessionClaims struct {
	UserID    string `json:"userID"`
	SessionID string `json:"sessionID"`
	jwt.RegisteredClaims
}

func GetSessionToken(userID, sessionID, secret string, expire time.Duration) (string, error) {
	claims := &SessionClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expire)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken 返回 userID 和 sessionID
func ParseSessionToken(token, secret string) (string, string, error) {
	parse, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return "", "", err
	}

	if claims, ok := parse.Claims.(jwt.MapClaims); ok && parse.Valid {
		return fmt.Sprintf("%v", claims["userID"]), fmt.Sprintf("%v", claims["sessionID"]), nil
	}

	return "", "", errors.New("token not valid")
}
