package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/moonshakerlabs/taxdrive/internal/federation"
	"github.com/moonshakerlabs/taxdrive/internal/link"
)

// StorageHandler exposes the link lifecycle: consent URL, code exchange,
// status, and disconnect.
type StorageHandler struct {
	federation *federation.Service
	links      *link.Service
	jwtSecret  string
}

// NewStorageHandler creates a StorageHandler.
func NewStorageHandler(f *federation.Service, l *link.Service, jwtSecret string) *StorageHandler {
	return &StorageHandler{federation: f, links: l, jwtSecret: jwtSecret}
}

// Authorize returns the provider consent URL to redirect the user to.
func (h *StorageHandler) Authorize(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetUserClaims(req, h.jwtSecret); err != nil {
		return unauthorizedResponse(), nil
	}
	// State is echoed back on the callback; the frontend holds it for the
	// duration of the consent round trip.
	state := uuid.NewString()
	return jsonResponse(http.StatusOK, map[string]string{
		"url":   h.links.AuthCodeURL(state),
		"state": state,
	}), nil
}

// Link runs the exchange: code for tokens, identity and quota gate, root
// folder creation, StorageLink persistence.
func (h *StorageHandler) Link(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := GetUserClaims(req, h.jwtSecret)
	if err != nil {
		return unauthorizedResponse(), nil
	}

	var body struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirect_uri"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil || body.Code == "" {
		return errorResponse(http.StatusBadRequest, "missing_code", nil), nil
	}

	status, err := h.federation.Exchange(ctx, claims.UserID, claims.Email, body.Code, body.RedirectURI)
	if err != nil {
		fmt.Printf("Exchange error for user %s: %v\n", claims.UserID, err)
		return federationErrorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, status), nil
}

// Status reports the link state without any provider calls.
func (h *StorageHandler) Status(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := GetUserClaims(req, h.jwtSecret)
	if err != nil {
		return unauthorizedResponse(), nil
	}
	status, err := h.federation.Status(ctx, claims.UserID)
	if err != nil {
		fmt.Printf("Status error for user %s: %v\n", claims.UserID, err)
		return errorResponse(http.StatusInternalServerError, "status_failed", nil), nil
	}
	return jsonResponse(http.StatusOK, status), nil
}

// Disconnect tears the link down. Remote documents stay where they are.
func (h *StorageHandler) Disconnect(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := GetUserClaims(req, h.jwtSecret)
	if err != nil {
		return unauthorizedResponse(), nil
	}
	if err := h.federation.Disconnect(ctx, claims.UserID); err != nil {
		fmt.Printf("Disconnect error for user %s: %v\n", claims.UserID, err)
		return federationErrorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, map[string]bool{"success": true}), nil
}
