// Command client is a minimal terminal client: it loads the mailbox through
// the backend API, subscribes to the live change feed, and prints the Inbox
// as it changes. Useful for poking at a running backend without a UI.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/axonhq/axonmail/internal/client"
	"github.com/axonhq/axonmail/internal/mailstore"
	"github.com/axonhq/axonmail/internal/models"
)

func main() {
	// .env is optional here; flags from the environment only.
	_ = godotenv.Load()

	baseURL := os.Getenv("AXONMAIL_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	wsURL := os.Getenv("AXONMAIL_WS_URL")
	if wsURL == "" {
		wsURL = "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiClient := client.NewAPIClient(baseURL)
	feed := client.NewFeed(wsURL)
	store := mailstore.NewStore(apiClient, apiClient, feed)

	// A reconnected feed may have missed events; reload the collection.
	feed.OnReconnect = func(ctx context.Context) {
		if err := store.Load(ctx, ""); err != nil {
			log.Printf("Client: reload after reconnect failed: %v", err)
		}
	}

	if err := store.Load(ctx, ""); err != nil {
		log.Fatalf("Failed to load mailbox: %v", err)
	}

	unsubscribe, err := store.Subscribe(ctx)
	if err != nil {
		log.Fatalf("Failed to subscribe to change feed: %v", err)
	}
	defer unsubscribe()

	printMailbox(store)
	log.Println("Watching for mailbox changes. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	last := snapshot(store)
	for {
		select {
		case <-ticker.C:
			if current := snapshot(store); current != last {
				last = current
				printMailbox(store)
			}
		case <-sigChan:
			log.Println("Shutting down")
			return
		}
	}
}

// snapshot reduces the Inbox to a comparable string so the loop only reprints
// on actual change.
func snapshot(store *mailstore.Store) string {
	var b strings.Builder
	for _, mail := range store.FilteredView(models.FolderInbox, "", "") {
		fmt.Fprintf(&b, "%s|%v;", mail.ID, mail.ReadStatus)
	}
	return b.String()
}

func printMailbox(store *mailstore.Store) {
	inbox := store.FilteredView(models.FolderInbox, "", "")
	fmt.Printf("Inbox (%d):\n", len(inbox))
	for _, mail := range inbox {
		marker := " "
		if !mail.ReadStatus {
			marker = "*"
		}
		fmt.Printf("  %s [%s] %s (from %s)\n", marker, mail.DisplayCategory(), mail.Subject, mail.Sender)
	}
}
