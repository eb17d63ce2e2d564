package storage

import "context"

// UploadInput carries one file submitted with a message.
type UploadInput struct {
	FileName string
	MimeType string
	Body     []byte
}

// StoredObject is the durable reference returned by the store. The ticketing
// core only consumes this contract; it never reads objects back.
type StoredObject struct {
	URL      string
	FileName string
	MimeType string
	Size     int64
}

// BlobStore accepts a binary payload and returns a durable reference.
// Implementations must treat stored objects as immutable.
type BlobStore interface {
	Put(ctx context.Context, key string, in UploadInput) (StoredObject, error)
}
