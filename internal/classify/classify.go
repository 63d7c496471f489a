// Package classify assigns folders and Inbox categories to inbound mail using
// keyword heuristics, and scores obvious spam. It runs once per message during
// ingestion; results are stored, never recomputed.
package classify

import (
	"regexp"
	"strings"

	"github.com/axonhq/axonmail/internal/models"
)

// Result is the classification outcome for one message.
type Result struct {
	Folder   string
	Category string
	IsSpam   bool
}

var spamPhrases = []string{
	"win money",
	"free offer",
	"lottery",
	"click here",
	"earn fast",
	"crypto",
}

var promotionSenders = []string{"amazon", "flipkart"}
var socialSenders = []string{"linkedin", "facebook", "twitter"}
var updateSenders = []string{"github", "noreply"}

// Classify determines the folder and Inbox category for a message.
// Spam goes to the Spam folder with no category; everything else lands in the
// Inbox under Promotions, Social, Updates or Primary.
func Classify(sender, subject, body string) Result {
	from := strings.ToLower(sender)
	text := from + " " + strings.ToLower(subject) + " " + strings.ToLower(body)

	if containsAny(text, spamPhrases) || Score(subject, body) >= spamThreshold {
		return Result{Folder: models.FolderSpam, IsSpam: true}
	}

	if containsAny(from, promotionSenders) || strings.Contains(text, "sale") || strings.Contains(text, "offer") {
		return Result{Folder: models.FolderInbox, Category: "Promotions"}
	}

	if containsAny(from, socialSenders) {
		return Result{Folder: models.FolderInbox, Category: "Social"}
	}

	if containsAny(from, updateSenders) || strings.Contains(text, "login") {
		return Result{Folder: models.FolderInbox, Category: "Updates"}
	}

	return Result{Folder: models.FolderInbox, Category: models.CategoryPrimary}
}

// spamThreshold is the score at which a message is treated as spam.
const spamThreshold = 5

var shoutingPattern = regexp.MustCompile(`!!!|\$\$\$`)

// Score rates how spammy a message looks. Individually weak signals add up;
// only the combined score decides.
func Score(subject, body string) int {
	score := 0
	text := strings.ToLower(subject + " " + body)

	if strings.Contains(text, "free") || strings.Contains(text, "win") {
		score += 3
	}
	if strings.Contains(text, "click here") || strings.Contains(text, "urgent") {
		score += 2
	}
	if shoutingPattern.MatchString(text) {
		score += 2
	}

	return score
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
