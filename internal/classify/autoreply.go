package classify

import "strings"

// AutoReply returns a canned reply suggestion based on the message subject.
// It is the local fallback when the AI text service is unavailable.
func AutoReply(subject string) string {
	s := strings.ToLower(subject)

	if strings.Contains(s, "interview") {
		return "Thank you for the interview invitation. I will attend."
	}

	if strings.Contains(s, "meeting") {
		return "Meeting confirmed. See you there."
	}

	if strings.Contains(s, "support") {
		return "Thanks for contacting support. I will review shortly."
	}

	return "Thank you for reaching out. I will respond soon."
}
