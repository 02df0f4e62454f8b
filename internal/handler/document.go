package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/moonshakerlabs/taxdrive/internal/federation"
)

// DocumentHandler pushes documents into the linked Drive account and
// relocates them when their classification changes.
type DocumentHandler struct {
	federation *federation.Service
	jwtSecret  string
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(f *federation.Service, jwtSecret string) *DocumentHandler {
	return &DocumentHandler{federation: f, jwtSecret: jwtSecret}
}

// Upload places a document under root/country/fiscal-year with a
// collision-free "<category>-<filename>" name.
func (h *DocumentHandler) Upload(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := GetUserClaims(req, h.jwtSecret)
	if err != nil {
		return unauthorizedResponse(), nil
	}

	var body struct {
		Filename   string `json:"filename"`
		MimeType   string `json:"mime_type"`
		Country    string `json:"country"`
		FiscalYear string `json:"fiscal_year"`
		Category   string `json:"category"`
		Content    string `json:"content"` // base64
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid_body", nil), nil
	}
	if body.Filename == "" || body.Country == "" || body.FiscalYear == "" || body.Category == "" {
		return errorResponse(http.StatusBadRequest, "missing_fields", nil), nil
	}
	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		return errorResponse(http.StatusBadRequest, "invalid_content_encoding", nil), nil
	}

	doc, err := h.federation.Upload(ctx, claims.UserID, federation.UploadInput{
		Content:          content,
		MimeType:         body.MimeType,
		Country:          body.Country,
		FiscalYearLabel:  body.FiscalYear,
		Category:         body.Category,
		OriginalFilename: body.Filename,
	})
	if err != nil {
		fmt.Printf("Upload error for user %s: %v\n", claims.UserID, err)
		return federationErrorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, doc), nil
}

// Move repoints an uploaded document at a new country/fiscal-year folder.
func (h *DocumentHandler) Move(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := GetUserClaims(req, h.jwtSecret)
	if err != nil {
		return unauthorizedResponse(), nil
	}

	fileID := req.PathParameters["id"]
	if fileID == "" {
		return errorResponse(http.StatusBadRequest, "missing_file_id", nil), nil
	}

	var body struct {
		Country    string `json:"country"`
		FiscalYear string `json:"fiscal_year"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil || body.Country == "" || body.FiscalYear == "" {
		return errorResponse(http.StatusBadRequest, "missing_fields", nil), nil
	}

	doc, err := h.federation.Move(ctx, claims.UserID, fileID, body.Country, body.FiscalYear)
	if err != nil {
		fmt.Printf("Move error for user %s: %v\n", claims.UserID, err)
		return federationErrorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"new_path": doc.Path}), nil
}
