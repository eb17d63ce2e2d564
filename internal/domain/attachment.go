package domain

import "time"

// Attachment stores metadata for a file attached to a message. Created
// atomically with its message and immutable afterwards; deleting the message
// tombstones the message only, the stored object is untouched.
type Attachment struct {
	ID        string
	MessageID string
	FileName  string
	FileURL   string
	MimeType  string
	FileSize  int64
	CreatedAt time.Time
}
