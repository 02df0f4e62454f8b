package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/moonshakerlabs/taxdrive/internal/crypto"
	"github.com/moonshakerlabs/taxdrive/internal/federation"
	"github.com/moonshakerlabs/taxdrive/internal/handler"
	"github.com/moonshakerlabs/taxdrive/internal/link"
	"github.com/moonshakerlabs/taxdrive/internal/oplock"
	"github.com/moonshakerlabs/taxdrive/internal/remote"
	"github.com/moonshakerlabs/taxdrive/internal/remote/googledrive"
	"github.com/moonshakerlabs/taxdrive/internal/remote/memory"
	"github.com/moonshakerlabs/taxdrive/internal/secret"
)

// App holds the dependencies for the Lambda function.
type App struct {
	storageHandler   *handler.StorageHandler
	documentHandler  *handler.DocumentHandler
	apiGatewaySecret string
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// NewApp initializes the application dependencies. DEV_MODE=true swaps every
// AWS- or Google-backed dependency for an in-process one so the full
// link/upload/move flow runs without credentials.
func NewApp(ctx context.Context) *App {
	devMode := os.Getenv("DEV_MODE") == "true"

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}
	dynamoClient := dynamodb.NewFromConfig(cfg)

	// Token cipher
	var cipher crypto.TokenCipher
	if devMode {
		cipher = crypto.NewPlainCipher()
		fmt.Println("Using PlainCipher (DEV_MODE=true)")
	} else {
		cipher = crypto.NewKMSCipher(kms.NewFromConfig(cfg), envOr("KMS_KEY_ID", "alias/taxdrive-link-key"))
	}

	// Secret resolver
	var resolver secret.Resolver
	if devMode {
		resolver = secret.NewEnvResolver()
		fmt.Println("Using EnvResolver (DEV_MODE=true)")
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
	}

	googleClientSecret, err := resolver.GetSecret(ctx, envOr("GOOGLE_CLIENT_SECRET_PARAM", "/taxdrive/google-client-secret"))
	if err != nil {
		log.Printf("WARNING: failed to resolve GOOGLE_CLIENT_SECRET: %v", err)
	}
	jwtSecret, err := resolver.GetSecret(ctx, envOr("JWT_SECRET_PARAM", "/taxdrive/jwt-secret"))
	if err != nil {
		log.Printf("WARNING: failed to resolve JWT_SECRET: %v", err)
		jwtSecret = "default-dev-secret"
	}
	apiGatewaySecret, err := resolver.GetSecret(ctx, envOr("API_GATEWAY_SECRET_PARAM", "/taxdrive/api-gateway-secret"))
	if err != nil {
		log.Printf("WARNING: failed to resolve API_GATEWAY_SECRET: %v", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: googleClientSecret,
		RedirectURL:  envOr("GOOGLE_REDIRECT_URL", envOr("FRONTEND_URL", "http://localhost:3000")+"/storage/callback"),
		Scopes: []string{
			"https://www.googleapis.com/auth/drive",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: google.Endpoint,
	}

	// Credential store: in-memory fallback in DEV_MODE, DynamoDB otherwise.
	var linkService *link.Service
	if devMode {
		linkService = link.NewService(oauthConfig, nil, "", cipher)
		fmt.Println("Using in-memory link store (DEV_MODE=true)")
	} else {
		linkService = link.NewService(oauthConfig, dynamoClient, envOr("STORAGE_LINKS_TABLE", "StorageLinks"), cipher)
	}

	// Per-user operation lock
	var locker oplock.Locker
	if devMode {
		locker = oplock.NewMemoryLocker()
	} else {
		locker = oplock.NewDynamoLocker(dynamoClient, envOr("OPERATION_LOCKS_TABLE", "StorageOperationLocks"))
	}

	// Remote drive factory
	var drives remote.Factory = googledrive.Factory
	if devMode {
		// One shared in-memory account; every token maps to it.
		devDrive := memory.New(envOr("DEV_DRIVE_EMAIL", "dev@taxdrive.local"))
		drives = func(context.Context, string) (remote.Drive, error) { return devDrive, nil }
		fmt.Println("Using in-memory remote drive (DEV_MODE=true)")
	}

	federationService := federation.NewService(linkService, drives, locker)

	return &App{
		storageHandler:   handler.NewStorageHandler(federationService, linkService, jwtSecret),
		documentHandler:  handler.NewDocumentHandler(federationService, jwtSecret),
		apiGatewaySecret: apiGatewaySecret,
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	fmt.Printf("Request: %s %s\n", method, path)

	// CORS Preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Only CloudFront carries the origin-verify header; skip in DEV_MODE.
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			fmt.Printf("Security Block: Missing or invalid X-Origin-Verify header\n")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	path = strings.TrimPrefix(path, "/api")

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}

	// /storage
	if path == "/storage/authorize" && method == "GET" {
		return corsResponse(must(app.storageHandler.Authorize(ctx, req))), nil
	}
	if path == "/storage/link" {
		switch method {
		case "POST":
			return corsResponse(must(app.storageHandler.Link(ctx, req))), nil
		case "GET":
			return corsResponse(must(app.storageHandler.Status(ctx, req))), nil
		case "DELETE":
			return corsResponse(must(app.storageHandler.Disconnect(ctx, req))), nil
		}
	}

	// /documents
	if path == "/documents" && method == "POST" {
		return corsResponse(must(app.documentHandler.Upload(ctx, req))), nil
	}
	if strings.HasPrefix(path, "/documents/") && strings.HasSuffix(path, "/move") && method == "POST" {
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) == 3 {
			req.PathParameters["id"] = parts[1]
			return corsResponse(must(app.documentHandler.Move(ctx, req))), nil
		}
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = envOr("FRONTEND_URL", "http://localhost:3000")
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, ignoring the error.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		fmt.Printf("Handler error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
