package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/axonhq/axonmail/internal/ai"
	"github.com/axonhq/axonmail/internal/api"
	"github.com/axonhq/axonmail/internal/blob"
	"github.com/axonhq/axonmail/internal/config"
	"github.com/axonhq/axonmail/internal/db"
	"github.com/axonhq/axonmail/internal/ingest"
	"github.com/axonhq/axonmail/internal/models"
	"github.com/axonhq/axonmail/internal/transport"
	ws "github.com/axonhq/axonmail/internal/websocket"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	wsHub := ws.NewHub(32)

	// Fan the Postgres change feed out to every connected websocket client.
	listener := db.NewListener(pool)
	go func() {
		err := listener.Listen(ctx, func(event models.ChangeEvent) {
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("Server: failed to encode change event: %v", err)
				return
			}
			wsHub.Broadcast(payload)
		})
		if err != nil {
			log.Printf("Server: change feed listener stopped: %v", err)
		}
	}()

	server := NewServer(cfg, pool, wsHub)

	address := ":" + cfg.Port
	log.Printf("Axon Mail backend starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// NewServer creates and returns the HTTP handler for the Axon Mail API server.
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
	_, _ = fmt.Fprintf(w, "Axon Mail API is running")
}
