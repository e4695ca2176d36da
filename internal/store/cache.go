// ABOUTME: Time-bounded cache record types for remote content and images
// ABOUTME: Expired records are swept and collections trimmed during migration

package store

import (
	"encoding/json"
	"time"
)

// Per-collection caps, enforced newest-first by the migration trim pass
// independent of expiry.
const (
	MaxCachedContent = 100
	MaxCachedImages  = 50
)

// CachedContent is a cached remote payload (verse of the day, hadith,
// tafsir, weather) with an explicit expiry.
type CachedContent struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	DateAdded time.Time       `json:"dateAdded"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// CachedImage is cached background-image metadata with an explicit expiry.
type CachedImage struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Category  string    `json:"category"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	DateAdded time.Time `json:"dateAdded"`
	ExpiresAt time.Time `json:"expiresAt"`
}
