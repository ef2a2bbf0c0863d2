package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

type FileType string

const (
	FileTypeCover FileType = "cover"
	FileTypePDF   FileType = "pdf"
)

type HistoryAction string

const (
	ActionCreate HistoryAction = "create"
	ActionUpdate HistoryAction = "update"
	ActionDelete HistoryAction = "delete"
)

type Author struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Bio  *string   `db:"bio" json:"bio,omitempty"`
}

type Genre struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
}

type Book struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	AuthorID    uuid.UUID  `db:"author_id" json:"authorId"`
	GenreID     *uuid.UUID `db:"genre_id" json:"genreId,omitempty"`
	Year        int        `db:"year" json:"year"`
	IsPublished bool       `db:"is_published" json:"isPublished"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// Snapshot is the field -> value capture stored with a history entry,
// persisted as jsonb.
type Snapshot map[string]any

func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *Snapshot) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.Errorf("snapshot: unsupported scan type %T", src)
	}
}

type BookFile struct {
	ID           uuid.UUID `db:"id" json:"id"`
	BookID       uuid.UUID `db:"book_id" json:"bookId"`
	StorageKey   string    `db:"storage_key" json:"storageKey"`
	FileType     FileType  `db:"file_type" json:"fileType"`
	OriginalName string    `db:"original_name" json:"originalName"`
	SizeBytes    int64     `db:"size_bytes" json:"sizeBytes"`
	MimeType     string    `db:"mime_type" json:"mimeType"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// BookHistory is an append-only audit record. There is no update path for
// history entries anywhere in the service.
type BookHistory struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	BookID    uuid.UUID     `db:"book_id" json:"bookId"`
	UserID    uuid.UUID     `db:"user_id" json:"userId"`
	Action    HistoryAction `db:"action" json:"action"`
	ChangedAt time.Time     `db:"changed_at" json:"changedAt"`
	OldValues Snapshot      `db:"old_values" json:"oldValues,omitempty"`
	NewValues Snapshot      `db:"new_values" json:"newValues,omitempty"`
}

// BookDetail is a book with its file rows and the access handles for them:
// a presigned cover URL and a one-time token for the pdf.
type BookDetail struct {
	Book
	Files         []BookFile `json:"files"`
	CoverURL      string     `json:"coverUrl,omitempty"`
	DownloadToken string     `json:"downloadToken,omitempty"`
}

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	FullName     *string   `db:"full_name" json:"fullName,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Roles        Roles     `db:"roles" json:"roles"`
	IsActive     bool      `db:"is_active" json:"isActive"`
}

// Roles is stored as a postgres text array.
type Roles []Role

func (r Roles) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "{}", nil
	}
	out := "{"
	for i, role := range r {
		if i > 0 {
			out += ","
		}
		out += string(role)
	}
	return out + "}", nil
}

func (r *Roles) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	case nil:
		*r = nil
		return nil
	default:
		return errors.Errorf("roles: unsupported scan type %T", src)
	}
	raw = trimBraces(raw)
	if raw == "" {
		*r = Roles{}
		return nil
	}
	var roles Roles
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			roles = append(roles, Role(raw[start:i]))
			start = i + 1
		}
	}
	*r = roles
	return nil
}

func trimBraces(s string) string {
	if len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}' {
		return s[1 : len(s)-1]
	}
	return s
}

// Token is the OIDC token set returned by the identity provider. It is
// never persisted.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// Introspection is the provider's answer about a presented token.
type Introspection struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub,omitempty"`
	Username string `json:"preferred_username,omitempty"`
	Email    string `json:"email,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Expiry   int64  `json:"exp,omitempty"`
}

// UserInfo is the OIDC userinfo payload for an access token.
type UserInfo struct {
	Subject  string `json:"sub"`
	Username string `json:"preferred_username,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}
