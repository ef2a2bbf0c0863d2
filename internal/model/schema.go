package model

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Create and update schemas expose Values, the column -> value map of the
// fields that were explicitly set. Update schemas use pointer fields, so an
// unset field is simply absent from the map (PATCH semantics). Filter
// schemas expose Conds: string fields match by case-insensitive substring,
// everything else by equality.

type AuthorCreate struct {
	Name string  `json:"name" form:"name" validate:"required,max=100"`
	Bio  *string `json:"bio,omitempty" form:"bio"`
}

func (c AuthorCreate) Values() map[string]any {
	v := map[string]any{"name": c.Name}
	if c.Bio != nil {
		v["bio"] = *c.Bio
	}
	return v
}

type AuthorUpdate struct {
	Name *string `json:"name,omitempty" form:"name" validate:"omitempty,max=100"`
	Bio  *string `json:"bio,omitempty" form:"bio"`
}

func (u AuthorUpdate) Values() map[string]any {
	v := map[string]any{}
	if u.Name != nil {
		v["name"] = *u.Name
	}
	if u.Bio != nil {
		v["bio"] = *u.Bio
	}
	return v
}

type AuthorFilter struct {
	Name *string `query:"name"`
	Bio  *string `query:"bio"`
}

func (f AuthorFilter) Conds() []sq.Sqlizer {
	var conds []sq.Sqlizer
	if f.Name != nil {
		conds = append(conds, sq.ILike{"name": "%" + *f.Name + "%"})
	}
	if f.Bio != nil {
		conds = append(conds, sq.ILike{"bio": "%" + *f.Bio + "%"})
	}
	return conds
}

type GenreCreate struct {
	Name        string  `json:"name" form:"name" validate:"required,max=50"`
	Description *string `json:"description,omitempty" form:"description"`
}

func (c GenreCreate) Values() map[string]any {
	v := map[string]any{"name": c.Name}
	if c.Description != nil {
		v["description"] = *c.Description
	}
	return v
}

type GenreUpdate struct {
	Name        *string `json:"name,omitempty" form:"name" validate:"omitempty,max=50"`
	Description *string `json:"description,omitempty" form:"description"`
}

func (u GenreUpdate) Values() map[string]any {
	v := map[string]any{}
	if u.Name != nil {
		v["name"] = *u.Name
	}
	if u.Description != nil {
		v["description"] = *u.Description
	}
	return v
}

type GenreFilter struct {
	Name        *string `query:"name"`
	Description *string `query:"description"`
}

func (f GenreFilter) Conds() []sq.Sqlizer {
	var conds []sq.Sqlizer
	if f.Name != nil {
		conds = append(conds, sq.ILike{"name": "%" + *f.Name + "%"})
	}
	if f.Description != nil {
		conds = append(conds, sq.ILike{"description": "%" + *f.Description + "%"})
	}
	return conds
}

type BookCreate struct {
	Title       string     `json:"title" form:"title" validate:"required,max=200"`
	Description *string    `json:"description,omitempty" form:"description"`
	AuthorID    uuid.UUID  `json:"authorId" form:"authorId" validate:"required"`
	GenreID     *uuid.UUID `json:"genreId,omitempty" form:"genreId"`
	Year        int        `json:"year" form:"year" validate:"required,gte=1450"`
	IsPublished bool       `json:"isPublished" form:"isPublished"`
}

func (c BookCreate) Values() map[string]any {
	v := map[string]any{
		"title":        c.Title,
		"author_id":    c.AuthorID,
		"year":         c.Year,
		"is_published": c.IsPublished,
	}
	if c.Description != nil {
		v["description"] = *c.Description
	}
	if c.GenreID != nil {
		v["genre_id"] = *c.GenreID
	}
	return v
}

type BookUpdate struct {
	Title       *string    `json:"title,omitempty" form:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description,omitempty" form:"description"`
	AuthorID    *uuid.UUID `json:"authorId,omitempty" form:"authorId"`
	GenreID     *uuid.UUID `json:"genreId,omitempty" form:"genreId"`
	Year        *int       `json:"year,omitempty" form:"year" validate:"omitempty,gte=1450"`
	IsPublished *bool      `json:"isPublished,omitempty" form:"isPublished"`
}

func (u BookUpdate) Values() map[string]any {
	v := map[string]any{}
	if u.Title != nil {
		v["title"] = *u.Title
	}
	if u.Description != nil {
		v["description"] = *u.Description
	}
	if u.AuthorID != nil {
		v["author_id"] = *u.AuthorID
	}
	if u.GenreID != nil {
		v["genre_id"] = *u.GenreID
	}
	if u.Year != nil {
		v["year"] = *u.Year
	}
	if u.IsPublished != nil {
		v["is_published"] = *u.IsPublished
	}
	return v
}

type BookFilter struct {
	Title       *string    `query:"title"`
	AuthorID    *uuid.UUID `query:"authorId"`
	GenreID     *uuid.UUID `query:"genreId"`
	Year        *int       `query:"year"`
	IsPublished *bool      `query:"isPublished"`
}

func (f BookFilter) Conds() []sq.Sqlizer {
	var conds []sq.Sqlizer
	if f.Title != nil {
		conds = append(conds, sq.ILike{"title": "%" + *f.Title + "%"})
	}
	if f.AuthorID != nil {
		conds = append(conds, sq.Eq{"author_id": *f.AuthorID})
	}
	if f.GenreID != nil {
		conds = append(conds, sq.Eq{"genre_id": *f.GenreID})
	}
	if f.Year != nil {
		conds = append(conds, sq.Eq{"year": *f.Year})
	}
	if f.IsPublished != nil {
		conds = append(conds, sq.Eq{"is_published": *f.IsPublished})
	}
	return conds
}

type BookFileCreate struct {
	BookID       uuid.UUID `validate:"required"`
	StorageKey   string    `validate:"required,max=255"`
	FileType     FileType  `validate:"required,oneof=cover pdf"`
	OriginalName string    `validate:"required,max=100"`
	SizeBytes    int64     `validate:"gte=0"`
	MimeType     string    `validate:"required,max=50"`
}

func (c BookFileCreate) Values() map[string]any {
	return map[string]any{
		"book_id":       c.BookID,
		"storage_key":   c.StorageKey,
		"file_type":     c.FileType,
		"original_name": c.OriginalName,
		"size_bytes":    c.SizeBytes,
		"mime_type":     c.MimeType,
	}
}

type HistoryCreate struct {
	BookID    uuid.UUID
	UserID    uuid.UUID
	Action    HistoryAction
	OldValues Snapshot
	NewValues Snapshot
}

func (c HistoryCreate) Values() map[string]any {
	v := map[string]any{
		"book_id": c.BookID,
		"user_id": c.UserID,
		"action":  c.Action,
	}
	if c.OldValues != nil {
		v["old_values"] = c.OldValues
	}
	if c.NewValues != nil {
		v["new_values"] = c.NewValues
	}
	return v
}

type UserCreate struct {
	Username string  `json:"username" validate:"required,max=50"`
	Email    string  `json:"email" validate:"required,email,max=100"`
	FullName *string `json:"fullName,omitempty" validate:"omitempty,max=100"`
	Password string  `json:"password" validate:"required,min=8"`
	Roles    Roles   `json:"roles,omitempty"`
}

// Values is filled by the service after the password is hashed; the raw
// password never reaches the repository.
type UserInsert struct {
	Username     string
	Email        string
	FullName     *string
	PasswordHash string
	Roles        Roles
}

func (c UserInsert) Values() map[string]any {
	roles := c.Roles
	if roles == nil {
		roles = Roles{RoleViewer}
	}
	v := map[string]any{
		"username":      c.Username,
		"email":         c.Email,
		"password_hash": c.PasswordHash,
		"roles":         roles,
	}
	if c.FullName != nil {
		v["full_name"] = *c.FullName
	}
	return v
}

type UserUpdate struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=100"`
	FullName *string `json:"fullName,omitempty" validate:"omitempty,max=100"`
	Roles    Roles   `json:"roles,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

func (u UserUpdate) Values() map[string]any {
	v := map[string]any{}
	if u.Email != nil {
		v["email"] = *u.Email
	}
	if u.FullName != nil {
		v["full_name"] = *u.FullName
	}
	if u.Roles != nil {
		v["roles"] = u.Roles
	}
	if u.IsActive != nil {
		v["is_active"] = *u.IsActive
	}
	return v
}

type UserFilter struct {
	Username *string `query:"username"`
	Email    *string `query:"email"`
	IsActive *bool   `query:"isActive"`
}

func (f UserFilter) Conds() []sq.Sqlizer {
	var conds []sq.Sqlizer
	if f.Username != nil {
		conds = append(conds, sq.ILike{"username": "%" + *f.Username + "%"})
	}
	if f.Email != nil {
		conds = append(conds, sq.ILike{"email": "%" + *f.Email + "%"})
	}
	if f.IsActive != nil {
		conds = append(conds, sq.Eq{"is_active": *f.IsActive})
	}
	return conds
}
