// Package mailstore maintains a client-local, eventually-consistent mirror of
// the remote mail collection. The Store owns the collection and the selection;
// consumers read through its accessors and never mutate either directly.
package mailstore

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/axonhq/axonmail/internal/classify"
	"github.com/axonhq/axonmail/internal/models"
)

// MailAPI is the remote mail store surface the engine reads and writes.
type MailAPI interface {
	ListMails(ctx context.Context, folder string) ([]models.MailRecord, error)
	MarkRead(ctx context.Context, id string) error
}

// AssistAPI triggers server-side AI actions. Results arrive through the change
// feed, not through these calls.
type AssistAPI interface {
	Summarize(ctx context.Context, id string) error
	GenerateReply(ctx context.Context, id string) error
}

// Subscription is a live change-feed connection.
type Subscription interface {
	Close()
}

// Feed opens change-feed connections.
type Feed interface {
	Subscribe(ctx context.Context, handler func(models.ChangeEvent)) (Subscription, error)
}

// Store is the mailbox synchronization engine. All state is guarded by one
// mutex; event application is atomic with respect to the collection.
type Store struct {
	api    MailAPI
	assist AssistAPI
	feed   Feed

	mu            sync.Mutex
	mails         []models.MailRecord
	selected      *models.MailRecord
	loading       bool
	loadErr       error
	analyzing     int
	subscription  Subscription
	searchText    string
	searchHistory []string
}

// NewStore creates an engine over the given collaborators.
func NewStore(api MailAPI, assist AssistAPI, feed Feed) *Store {
	return &Store{
		api:    api,
		assist: assist,
		feed:   feed,
	}
}

// Load fetches the current remote collection, optionally scoped to a folder
// (empty folder loads everything), and replaces the local collection wholesale.
// Replacement rather than append keeps repeated loads from accumulating
// duplicates. A Load while another is in flight is a no-op.
func (s *Store) Load(ctx context.Context, folder string) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.loadErr = nil
	s.mu.Unlock()

	mails, err := s.api.ListMails(ctx, folder)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		// Keep whatever we had; the caller surfaces the error with a retry.
		s.loadErr = fmt.Errorf("failed to load mailbox: %w", err)
		return s.loadErr
	}

	s.mails = mails
	return nil
}

// pendingSubscription reserves the singleton slot while the real subscription
// is being established.
type pendingSubscription struct{}

func (pendingSubscription) Close() {}

// Subscribe opens the change feed and registers the engine's event handler.
// At most one subscription is ever live: a second call is a no-op returning a
// disposer that closes nothing. The returned disposer is safe to call twice.
func (s *Store) Subscribe(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.subscription != nil {
		s.mu.Unlock()
		return func() {}, nil
	}
	s.subscription = pendingSubscription{}
	s.mu.Unlock()

	sub, err := s.feed.Subscribe(ctx, s.applyEvent)
	if err != nil {
		s.mu.Lock()
		s.subscription = nil
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	s.mu.Lock()
	s.subscription = sub
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.subscription != nil {
				s.subscription.Close()
				s.subscription = nil
			}
		})
	}, nil
}

// Subscribed reports whether a change-feed subscription is live.
func (s *Store) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscription != nil
}

// applyEvent merges one change-feed event into the collection. It runs under
// the store mutex, so two concurrent deliveries can never tear the slice.
func (s *Store) applyEvent(event models.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Kind {
	case models.EventInsert:
		if event.New == nil {
			return
		}
		// Feed replays deliver the same insert more than once.
		if s.indexOf(event.New.ID) >= 0 {
			return
		}
		s.mails = append([]models.MailRecord{*event.New}, s.mails...)

	case models.EventUpdate:
		if event.New == nil {
			return
		}
		if i := s.indexOf(event.New.ID); i >= 0 {
			s.mails[i] = *event.New
		}
		if s.selected != nil && s.selected.ID == event.New.ID {
			updated := *event.New
			s.selected = &updated
		}

	case models.EventDelete:
		if event.Old == nil {
			return
		}
		if i := s.indexOf(event.Old.ID); i >= 0 {
			s.mails = append(s.mails[:i], s.mails[i+1:]...)
		}
		if s.selected != nil && s.selected.ID == event.Old.ID {
			s.selected = nil
		}
	}
}

// Select makes the record with the given id the current selection. Selecting
// an unread record optimistically marks it read locally and persists the flag
// remotely; a persistence failure is logged and the optimistic state stands,
// since read state is not safety-critical.
func (s *Store) Select(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}

	needsReadUpdate := !s.mails[i].ReadStatus
	if needsReadUpdate {
		s.mails[i].ReadStatus = true
	}
	selected := s.mails[i]
	s.selected = &selected
	s.mu.Unlock()

	if needsReadUpdate {
		if err := s.api.MarkRead(ctx, id); err != nil {
			log.Printf("Store: failed to persist read state for %s: %v", id, err)
		}
	}
}

// ClearSelection drops the current selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// Selected returns a copy of the currently selected record, or nil.
func (s *Store) Selected() *models.MailRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	selected := *s.selected
	return &selected
}

// Mails returns a copy of the current collection.
func (s *Store) Mails() []models.MailRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	mails := make([]models.MailRecord, len(s.mails))
	copy(mails, s.mails)
	return mails
}

// IsLoading reports whether a Load is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LoadError returns the error recorded by the most recent failed Load, or nil.
func (s *Store) LoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// FilteredView returns the records matching folder, category and search text.
// Category only narrows the Inbox; an empty category and the Primary default
// both show the whole folder. Search is a case-insensitive substring match
// over sender, subject and body. The view is computed fresh on each call and
// never mutates state.
func (s *Store) FilteredView(folder, category, searchText string) []models.MailRecord {
	s.mu.Lock()
	snapshot := make([]models.MailRecord, len(s.mails))
	copy(snapshot, s.mails)
	s.mu.Unlock()

	needle := strings.ToLower(searchText)

	var view []models.MailRecord
	for _, mail := range snapshot {
		if mail.Folder != folder {
			continue
		}
		if folder == models.FolderInbox && category != "" && category != models.CategoryPrimary && mail.DisplayCategory() != category {
			continue
		}
		if needle != "" && !strings.Contains(mail.SearchText(), needle) {
			continue
		}
		view = append(view, mail)
	}

	return view
}

// GenerateSummary asks the AI service to summarize a record. The analyzing
// flag is a coarse UI signal, not a lock: overlapping calls for different
// records are legal.
func (s *Store) GenerateSummary(ctx context.Context, id string) error {
	s.setAnalyzing(1)
	defer s.setAnalyzing(-1)

	if err := s.assist.Summarize(ctx, id); err != nil {
		return fmt.Errorf("failed to generate summary: %w", err)
	}
	return nil
}

// GenerateDraft asks the AI service to draft a reply to a record.
func (s *Store) GenerateDraft(ctx context.Context, id string) error {
	s.setAnalyzing(1)
	defer s.setAnalyzing(-1)

	if err := s.assist.GenerateReply(ctx, id); err != nil {
		return fmt.Errorf("failed to generate draft: %w", err)
	}
	return nil
}

// SuggestReply returns a canned local reply suggestion for a record, for use
// when the AI service is unreachable.
func (s *Store) SuggestReply(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return classify.AutoReply(s.mails[i].Subject)
	}
	return ""
}

// IsAnalyzing reports whether any AI action is in flight.
func (s *Store) IsAnalyzing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing > 0
}

func (s *Store) setAnalyzing(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing += delta
}

// indexOf returns the position of a record in the collection, or -1.
// Callers must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.mails {
		if s.mails[i].ID == id {
			return i
		}
	}
	return -1
}
