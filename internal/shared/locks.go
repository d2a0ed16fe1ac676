package shared

import "fmt"

// CardKey builds the redis key holding a card snapshot.
func CardKey(cardID string) string {
	return "card:" + cardID
}

// SubmissionLockKey builds redis keys guarding a card form submission.
func SubmissionLockKey(cardID, form string) string {
	return fmt.Sprintf("%s:%s:lock", CardKey(cardID), form)
}
