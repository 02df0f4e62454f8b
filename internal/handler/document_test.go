package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

func linkUser(t *testing.T, e *handlerEnv, userID, email string) {
	t.Helper()
	resp, err := e.storage.Link(context.Background(),
		authedRequest(t, userID, email, `{"code":"auth-code"}`))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("link setup failed: err=%v body=%s", err, resp.Body)
	}
}

func uploadBody(filename, country, year, category string) string {
	b, _ := json.Marshal(map[string]string{
		"filename":    filename,
		"mime_type":   "application/pdf",
		"country":     country,
		"fiscal_year": year,
		"category":    category,
		"content":     base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
	})
	return string(b)
}

func TestUpload_PlacesDocument(t *testing.T) {
	e := newHandlerEnv(t, "alice@x.com")
	linkUser(t, e, "u1", "alice@x.com")

	resp, err := e.document.Upload(context.Background(),
		authedRequest(t, "u1", "alice@x.com", uploadBody("receipt.pdf", "France", "2024", "INVOICE")))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
	}

	var doc struct {
		FileID      string `json:"file_id"`
		DisplayName string `json:"display_name"`
		Path        string `json:"path"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &doc); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if doc.FileID == "" || doc.DisplayName != "INVOICE-receipt.pdf" || doc.Path != "TaxDrive/France/2024" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestUpload_MissingFields(t *testing.T) {
	e := newHandlerEnv(t, "alice@x.com")
	linkUser(t, e, "u1", "alice@x.com")

	body := `{"filename":"x.pdf","country":"France"}`
	resp, err := e.document.Upload(context.Background(), authedRequest(t, "u1", "alice@x.com", body))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpload_BadContentEncoding(t *testing.T) {
	e := newHandlerEnv(t, "alice@x.com")
	linkUser(t, e, "u1", "alice@x.com")

	body := `{"filename":"x.pdf","country":"France","fiscal_year":"2024","category":"INVOICE","content":"not base64!!"}`
	resp, err := e.document.Upload(context.Background(), authedRequest(t, "u1", "alice@x.com", body))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUpload_NotLinked(t *testing.T) {
	e := newHandlerEnv(t, "alice@x.com")

	resp, err := e.document.Upload(context.Background(),
		authedRequest(t, "u1", "alice@x.com", uploadBody("x.pdf", "France", "2024", "INVOICE")))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.StatusCode != http.StatusPreconditionFailed {
		t.Errorf("status = %d, want 412", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Error != "not_linked" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestMove_RelocatesDocument(t *testing.T) {
	ctx := context.Background()
	e := newHandlerEnv(t, "alice@x.com")
	linkUser(t, e, "u1", "alice@x.com")

	resp, err := e.document.Upload(ctx,
		authedRequest(t, "u1", "alice@x.com", uploadBody("x.pdf", "France", "2024", "INVOICE")))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("upload setup failed: err=%v body=%s", err, resp.Body)
	}
	var doc struct {
		FileID string `json:"file_id"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &doc); err != nil {
		t.Fatalf("bad body: %v", err)
	}

	req := authedRequest(t, "u1", "alice@x.com", `{"country":"Germany","fiscal_year":"2023-2024"}`)
	req.PathParameters = map[string]string{"id": doc.FileID}
	resp, err = e.document.Move(ctx, req)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
	}

	var moved struct {
		NewPath string `json:"new_path"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &moved); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if moved.NewPath != "TaxDrive/Germany/2023-2024" {
		t.Errorf("new path = %q", moved.NewPath)
	}
}

func TestMove_MissingFileID(t *testing.T) {
	e := newHandlerEnv(t, "alice@x.com")
	linkUser(t, e, "u1", "alice@x.com")

	resp, err := e.document.Move(context.Background(),
		authedRequest(t, "u1", "alice@x.com", `{"country":"France","fiscal_year":"2024"}`))
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMove_UnknownFile(t *testing.T) {
	e := newHandlerEnv(t, "alice@x.com")
	linkUser(t, e, "u1", "alice@x.com")

	req := authedRequest(t, "u1", "alice@x.com", `{"country":"France","fiscal_year":"2024"}`)
	req.PathParameters = map[string]string{"id": "file-gone"}
	resp, err := e.document.Move(context.Background(), req)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404, body = %s", resp.StatusCode, resp.Body)
	}
}

func TestUpload_Unauthorized(t *testing.T) {
	e := newHandlerEnv(t, "alice@x.com")
	resp, err := e.document.Upload(context.Background(), events.APIGatewayProxyRequest{Body: uploadBody("x.pdf", "France", "2024", "INVOICE")})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestFederationErrorResponse_QuotaCarriesAvailableBytes(t *testing.T) {
	e := newHandlerEnv(t, "alice@x.com")
	e.drive.SetQuota(10_000_000_000, 9_999_000_000)

	resp, err := e.storage.Link(context.Background(),
		authedRequest(t, "u1", "alice@x.com", `{"code":"auth-code"}`))
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, resp.Body)
	}
	var body struct {
		Error          string `json:"error"`
		AvailableBytes int64  `json:"available_bytes"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Error != "insufficient_quota" {
		t.Errorf("error = %q", body.Error)
	}
	if want := int64(1_000_000); body.AvailableBytes != want {
		t.Errorf("available_bytes = %d, want %d", body.AvailableBytes, want)
	}
}
