// Command test-server runs a self-contained Axon Mail backend for local
// development and E2E tests: a throwaway Postgres container, migrations, and
// a seeded mailbox. Gateway, blob and AI credentials come from the regular
// environment variables; routes that need them fail gracefully when absent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/axonhq/axonmail/internal/ai"
	"github.com/axonhq/axonmail/internal/api"
	"github.com/axonhq/axonmail/internal/blob"
	"github.com/axonhq/axonmail/internal/classify"
	"github.com/axonhq/axonmail/internal/config"
	"github.com/axonhq/axonmail/internal/db"
	"github.com/axonhq/axonmail/internal/ingest"
	"github.com/axonhq/axonmail/internal/models"
	"github.com/axonhq/axonmail/internal/testutil"
	"github.com/axonhq/axonmail/internal/transport"
	ws "github.com/axonhq/axonmail/internal/websocket"
)

func main() {
	ctx := context.Background()

	if err := setupTestEnvironment(); err != nil {
		log.Fatalf("Failed to setup test environment: %v", err)
	}

	postgresContainer, connStr, err := startPostgres(ctx)
	if err != nil {
		log.Fatalf("Failed to start Postgres: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}()

	cfg, pool, err := setupDatabase(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to setup database: %v", err)
	}
	defer pool.Close()

	if err := seedMailbox(ctx, pool); err != nil {
		log.Fatalf("Failed to seed mailbox: %v", err)
	}
	log.Println("Seeded sample mailbox")

	wsHub := ws.NewHub(32)
	listener := db.NewListener(pool)
	go func() {
		err := listener.Listen(ctx, func(event models.ChangeEvent) {
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("Test server: failed to encode change event: %v", err)
				return
			}
			wsHub.Broadcast(payload)
		})
		if err != nil {
			log.Printf("Test server: change feed listener stopped: %v", err)
		}
	}()

	if err := startHTTPServer(cfg, pool, wsHub); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// setupTestEnvironment fills in the required environment variables with dev
// defaults so config validation passes without a .env file.
func setupTestEnvironment() error {
	defaults := map[string]string{
		"AXONMAIL_ENV":         "test",
		"AXONMAIL_DB_PASSWORD": "axonmail",
		"MAILGUN_DOMAIN":       "sandbox.mailgun.test",
		"MAILGUN_API_KEY":      "key-sandbox",
		"GROQ_API_KEY":         "gsk-sandbox",
		"AXONMAIL_S3_BUCKET":   "axonmail-dev",
	}

	for key, value := range defaults {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// startPostgres starts a test Postgres database using testcontainers.
func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	log.Println("Starting test Postgres database...")
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("axonmail_test"),
		postgres.WithUsername("axonmail"),
		postgres.WithPassword("axonmail"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start Postgres container: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get connection string: %w", err)
	}

	log.Println("Test Postgres database started")
	return postgresContainer, connStr, nil
}

// setupDatabase creates a database connection pool and runs migrations.
func setupDatabase(ctx context.Context, connStr string) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := testutil.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Successfully connected to database and ran migrations")
	return cfg, pool, nil
}

// seedMailbox inserts a small mailbox exercising each folder and category.
func seedMailbox(ctx context.Context, pool *pgxpool.Pool) error {
	seeds := []struct {
		messageID string
		sender    string
		recipient string
		subject   string
		body      string
	}{
		{
			messageID: "msg1@test",
			sender:    "colleague@example.com",
			recipient: "me@axon.test",
			subject:   "Meeting Tomorrow",
			body:      "Don't forget about the meeting tomorrow at 2 PM.",
		},
		{
			messageID: "msg2@test",
			sender:    "offers@promotions.example.com",
			recipient: "me@axon.test",
			subject:   "50% off everything this weekend",
			body:      "Huge sale, this weekend only.",
		},
		{
			messageID: "msg3@test",
			sender:    "winner@lottery.example.com",
			recipient: "me@axon.test",
			subject:   "You are a WINNER! Claim your free prize now!!!",
			body:      "Congratulations, you have won. Act now, limited time offer!",
		},
	}

	for _, seed := range seeds {
		result := classify.Classify(seed.sender, seed.subject, seed.body)
		mail := &models.MailRecord{
			MessageID: seed.messageID,
			Sender:    seed.sender,
			Recipient: seed.recipient,
			Subject:   seed.subject,
			Body:      seed.body,
			Folder:    result.Folder,
			Category:  result.Category,
			IsSpam:    result.IsSpam,
		}
		if err := db.InsertMail(ctx, pool, mail); err != nil {
			return fmt.Errorf("failed to insert seed mail %s: %w", seed.messageID, err)
		}
	}

	sent := &models.MailRecord{
		MessageID:  "msg4@test",
		Sender:     "me@axon.test",
		Recipient:  "colleague@example.com",
		Subject:    "Re: Meeting Tomorrow",
		Body:       "See you there.",
		Folder:     models.FolderSent,
		ReadStatus: true,
	}
	if err := db.InsertMail(ctx, pool, sent); err != nil {
		return fmt.Errorf("failed to insert seed sent mail: %w", err)
	}

	return nil
}

// startHTTPServer starts the HTTP server and waits for shutdown signals.
func startHTTPServer(cfg *config.Config, dbPool *pgxpool.Pool, wsHub *ws.Hub) error {
	server := NewServer(cfg, dbPool, wsHub)
	address := ":" + cfg.Port

	log.Printf("Axon Mail test server starting on %s", address)
	log.Println("Server ready for E2E tests. Press Ctrl+C to stop.")

	serverErr := make(chan error, 1)
	go func() {
		if err := http.ListenAndServe(address, server); err != nil {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
		return nil
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}
}

// NewServer creates and returns the HTTP handler for the test server. Wiring
// mirrors cmd/server.
func NewServer(cfg *config.Config, dbPool *pgxpool.Pool, wsHub *ws.Hub) http.Handler {
	gateway := transport.NewMailgunGateway(cfg.MailgunDomain, cfg.MailgunAPIKey)

	blobs, err := blob.NewS3Store(cfg.S3Region, cfg.S3Bucket, cfg.S3Endpoint)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	assistant := ai.NewAssistant(cfg.GroqAPIKey, cfg.GroqModel)
	pipeline := ingest.NewPipeline(gateway, blobs, &dbRecorder{pool: dbPool})

	from := "me@" + cfg.MailgunDomain

	mailsHandler := api.NewMailsHandler(dbPool)
	sendHandler := api.NewSendHandler(dbPool, gateway, blobs, from)
	assistHandler := api.NewAssistHandler(dbPool, assistant)
	webhookHandler := api.NewWebhookHandler(gateway, pipeline)
	attachmentHandler := api.NewAttachmentHandler(blobs)
	wsHandler := api.NewWebSocketHandler(wsHub)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/functions/list-emails", mailsHandler.ListMails)
	mux.HandleFunc("/functions/mark-read", mailsHandler.MarkRead)
	mux.HandleFunc("/functions/send-email", sendHandler.Send)
	mux.HandleFunc("/functions/summarize", assistHandler.Summarize)
	mux.HandleFunc("/functions/generate-reply", assistHandler.GenerateReply)
	mux.HandleFunc("/functions/attachment-url", attachmentHandler.SignedURL)
	mux.HandleFunc("/webhooks/mailgun", webhookHandler.Handle)
	mux.HandleFunc("/ws", wsHandler.Handle)

	return api.WithCORS(mux)
}

// dbRecorder adapts the mails table to the ingestion pipeline's commit point.
type dbRecorder struct {
	pool *pgxpool.Pool
}

func (r *dbRecorder) Insert(ctx context.Context, mail *models.MailRecord) error {
	return db.InsertMail(ctx, r.pool, mail)
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Axon Mail Test Server is running")
}
