package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the authenticated application identity extracted from the
// session token. Email is the account's registered identity, used for the
// link-time identity match.
type UserClaims struct {
	UserID string
	Email  string
}

// GetUserClaims extracts and verifies the session JWT from the Authorization
// header or session cookie.
func GetUserClaims(req events.APIGatewayProxyRequest, jwtSecret string) (*UserClaims, error) {
	getHeader := func(name string) string {
		for k, v := range req.Headers {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return ""
	}

	// 1. Authorization header (Bearer <token>)
	tokenString := ""
	if authHeader := getHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	// 2. Session cookie
	if tokenString == "" {
		for _, part := range strings.Split(getHeader("Cookie"), ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "session_token=") {
				tokenString = strings.TrimPrefix(part, "session_token=")
				break
			}
		}
	}

	if tokenString == "" {
		return nil, fmt.Errorf("no authorization token found")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	email, _ := claims["email"].(string)
	return &UserClaims{UserID: sub, Email: email}, nil
}

func jsonResponse(status int, body interface{}) events.APIGatewayProxyResponse {
	data, _ := json.Marshal(body)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(data),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

func errorResponse(status int, code string, extra map[string]interface{}) events.APIGatewayProxyResponse {
	body := map[string]interface{}{"error": code}
	for k, v := range extra {
		body[k] = v
	}
	return jsonResponse(status, body)
}

func unauthorizedResponse() events.APIGatewayProxyResponse {
	return errorResponse(http.StatusUnauthorized, "unauthorized", nil)
}
