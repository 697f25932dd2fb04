package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Scopes is stored as a comma-separated column.
type Scopes []Scope

func (s Scopes) Has(scope Scope) bool {
	for _, v := range s {
		if v == scope {
			return true
		}
	}
	return false
}

func (s Scopes) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}

func (s Scopes) Value() (driver.Value, error) {
	return s.String(), nil
}

func (s *Scopes) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*s = nil
		return nil
	default:
		return fmt.Errorf("scopes: unsupported type %T", src)
	}

	out := Scopes{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, Scope(part))
		}
	}
	*s = out
	return nil
}

type APIKey struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	KeyHash   string  `db:"key_hash" json:"-"`
	KeyPrefix string  `db:"key_prefix" json:"key_prefix"`
	Scopes    Scopes  `db:"scopes" json:"scopes"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	LastUsed  *string `db:"last_used" json:"last_used"`
	RateLimit *int    `db:"rate_limit" json:"rate_limit"`
}

// CreateAPIKeyRequest is the body of POST /admin/api-keys.
type CreateAPIKeyRequest struct {
	Name      string   `json:"name"`
	Scopes    []string `json:"scopes"`
	RateLimit *int     `json:"rate_limit,omitempty"`
}

// CreatedAPIKey is returned once, at creation; it is the only time the raw key is visible.
type CreatedAPIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	Scopes    Scopes `json:"scopes"`
	CreatedAt string `json:"created_at"`
	RateLimit *int   `json:"rate_limit,omitempty"`
}
