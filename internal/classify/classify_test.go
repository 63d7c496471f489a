package classify

import (
	"testing"

	"github.com/axonhq/axonmail/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		sender   string
		subject  string
		body     string
		folder   string
		category string
		isSpam   bool
	}{
		{
			name:    "spam phrase routes to Spam",
			sender:  "stranger@shady.biz",
			subject: "You could win money today",
			body:    "Act now",
			folder:  models.FolderSpam,
			isSpam:  true,
		},
		{
			name:    "high spam score routes to Spam",
			sender:  "promo@shady.biz",
			subject: "FREE win!!!",
			body:    "click here urgent",
			folder:  models.FolderSpam,
			isSpam:  true,
		},
		{
			name:     "retail sender lands in Promotions",
			sender:   "deals@amazon.com",
			subject:  "Your order shipped",
			body:     "Track your package",
			folder:   models.FolderInbox,
			category: "Promotions",
		},
		{
			name:     "social network lands in Social",
			sender:   "notifications@linkedin.com",
			subject:  "New connection request",
			body:     "Someone wants to connect",
			folder:   models.FolderInbox,
			category: "Social",
		},
		{
			name:     "noreply sender lands in Updates",
			sender:   "noreply@github.com",
			subject:  "CI run finished",
			body:     "All checks passed",
			folder:   models.FolderInbox,
			category: "Updates",
		},
		{
			name:     "plain personal mail is Primary",
			sender:   "alice@example.com",
			subject:  "Lunch tomorrow?",
			body:     "Usual place at noon",
			folder:   models.FolderInbox,
			category: models.CategoryPrimary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.sender, tt.subject, tt.body)
			if got.Folder != tt.folder {
				t.Errorf("expected folder %q, got %q", tt.folder, got.Folder)
			}
			if got.Category != tt.category {
				t.Errorf("expected category %q, got %q", tt.category, got.Category)
			}
			if got.IsSpam != tt.isSpam {
				t.Errorf("expected isSpam=%v, got %v", tt.isSpam, got.IsSpam)
			}
		})
	}
}

func TestScore(t *testing.T) {
	if got := Score("Quarterly report", "numbers attached"); got != 0 {
		t.Errorf("expected score 0 for normal mail, got %d", got)
	}

	got := Score("FREE win", "click here urgent $$$")
	if got != 7 {
		t.Errorf("expected score 7, got %d", got)
	}
}

func TestAutoReply(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Interview invitation", "Thank you for the interview invitation. I will attend."},
		{"Team meeting Friday", "Meeting confirmed. See you there."},
		{"Support ticket #42", "Thanks for contacting support. I will review shortly."},
		{"Hello", "Thank you for reaching out. I will respond soon."},
	}

	for _, tt := range tests {
		if got := AutoReply(tt.subject); got != tt.want {
			t.Errorf("AutoReply(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}
