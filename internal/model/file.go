package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File is an inbound upload: content plus the caller-declared name and type.
type File struct {
	Filename    string
	ContentType string
	Content     []byte
	Metadata    map[string]string
}

func (f File) Size() int64 { return int64(len(f.Content)) }

// FileContent is a downloaded object with provider metadata.
type FileContent struct {
	Filename    string
	ContentType string
	Content     []byte
	Metadata    map[string]string
}

// ObjectMeta mirrors the subset of provider object metadata the service
// cares about.
type ObjectMeta struct {
	ContentType  string
	Size         int64
	LastModified time.Time
	Metadata     map[string]string
}

// ObjectKey is the single authoritative key convention for book payloads:
// books/{bookID}/{fileType}.{ext}. Every component derives keys here, so a
// book's objects always live under one prefix.
func ObjectKey(bookID uuid.UUID, fileType FileType, filename string) string {
	ext := "bin"
	if i := strings.LastIndexByte(filename, '.'); i >= 0 && i < len(filename)-1 {
		ext = strings.ToLower(filename[i+1:])
	}
	return fmt.Sprintf("books/%s/%s.%s", bookID, fileType, ext)
}

// ObjectPrefix addresses every object belonging to one book.
func ObjectPrefix(bookID uuid.UUID) string {
	return fmt.Sprintf("books/%s/", bookID)
}

// BookEvent is published to kafka after each successful book mutation.
type BookEvent struct {
	BookID    uuid.UUID     `json:"bookId"`
	UserID    uuid.UUID     `json:"userId"`
	Action    HistoryAction `json:"action"`
	OldValues Snapshot      `json:"oldValues,omitempty"`
	NewValues Snapshot      `json:"newValues,omitempty"`
	At        time.Time     `json:"at"`
}
