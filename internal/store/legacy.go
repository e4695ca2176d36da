// ABOUTME: Defensive decoders for records persisted by pre-1.3.0 releases
// ABOUTME: Coerces malformed leaves to safe defaults instead of rejecting records

// Everything in this file exists to absorb legacy data shapes. Once no
// pre-1.3.0 databases remain in the wild the whole file can be deleted.

package store

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// legacySettingsProbe distinguishes absent leaves from explicit zero values
// in the stored JSON, which the typed merge cannot. Only the version-gated
// spots need probing.
type legacySettingsProbe struct {
	Background struct {
		BlurIntensity  *float64          `json:"blurIntensity"`
		Opacity        *float64          `json:"opacity"`
		UploadedImages []json.RawMessage `json:"uploadedImages"`
	} `json:"background"`
	Greeting struct {
		Enabled *bool `json:"enabled"`
	} `json:"greeting"`
	Tasks struct {
		Enabled *bool `json:"enabled"`
	} `json:"tasks"`
}

// applyLegacySettingsFixes normalizes a merged settings record whose prior
// version predates backgroundFixBelow. raw is the original stored document.
func applyLegacySettingsFixes(merged *Settings, raw []byte, now time.Time) {
	var probe legacySettingsProbe
	// Best effort: an unparseable document already fell back to defaults.
	_ = json.Unmarshal(raw, &probe)

	defaults := DefaultSettings()
	// Pre-1.3.0 writers persisted 0 for unset blur and opacity, so an
	// explicit zero counts as missing here. The nil probe still matters for
	// the enabled flags below, where false is a real user choice.
	if probe.Background.BlurIntensity == nil || *probe.Background.BlurIntensity == 0 {
		merged.Background.BlurIntensity = defaults.Background.BlurIntensity
	}
	if probe.Background.Opacity == nil || *probe.Background.Opacity == 0 {
		merged.Background.Opacity = defaults.Background.Opacity
	}
	if probe.Greeting.Enabled == nil {
		merged.Greeting.Enabled = true
	}
	if probe.Tasks.Enabled == nil {
		merged.Tasks.Enabled = true
	}

	if len(probe.Background.UploadedImages) > 0 {
		images := make([]UploadedImage, 0, len(probe.Background.UploadedImages))
		for _, rawImg := range probe.Background.UploadedImages {
			images = append(images, normalizeUploadedImage(rawImg, now))
		}
		merged.Background.UploadedImages = images
	}
}

// normalizeUploadedImage reshapes one uploaded-image entry so the full
// metadata set is present, deriving missing values from existing data.
func normalizeUploadedImage(raw json.RawMessage, now time.Time) UploadedImage {
	var loose struct {
		ID               json.RawMessage `json:"id"`
		URL              string          `json:"url"`
		Name             string          `json:"name"`
		UploadedAt       json.RawMessage `json:"uploadedAt"`
		OriginalSize     json.RawMessage `json:"originalSize"`
		CompressedSize   json.RawMessage `json:"compressedSize"`
		Width            json.RawMessage `json:"width"`
		Height           json.RawMessage `json:"height"`
		CompressionRatio json.RawMessage `json:"compressionRatio"`
	}
	_ = json.Unmarshal(raw, &loose)

	img := UploadedImage{
		ID:               coerceString(loose.ID),
		URL:              loose.URL,
		Name:             loose.Name,
		UploadedAt:       coerceInt64(loose.UploadedAt, 0),
		OriginalSize:     coerceInt64(loose.OriginalSize, 0),
		CompressedSize:   coerceInt64(loose.CompressedSize, 0),
		Width:            int(coerceInt64(loose.Width, 0)),
		Height:           int(coerceInt64(loose.Height, 0)),
		CompressionRatio: coerceFloat64(loose.CompressionRatio, 0),
	}
	if img.ID == "" {
		img.ID = uuid.New().String()
	}
	if img.Name == "" {
		if base := path.Base(img.URL); base != "." && base != "/" && base != "" {
			img.Name = base
		} else {
			img.Name = "image-" + img.ID[:8]
		}
	}
	if img.UploadedAt == 0 {
		img.UploadedAt = now.UnixMilli()
	}
	if img.CompressionRatio == 0 {
		if img.OriginalSize > 0 && img.CompressedSize > 0 {
			img.CompressionRatio = float64(img.CompressedSize) / float64(img.OriginalSize)
		} else {
			img.CompressionRatio = 1
		}
	}
	return img
}

// decodeLegacyFavorite parses a stored favorite document, backfilling the
// add timestamp and tag list, remapping legacy book names and recomputing
// the derived id. The changed flag reports whether a write-back is needed.
func decodeLegacyFavorite(doc []byte, now time.Time) (*Favorite, bool, error) {
	var loose struct {
		ID          string          `json:"id"`
		Kind        string          `json:"type"`
		Surah       json.RawMessage `json:"surah"`
		Ayah        json.RawMessage `json:"ayah"`
		Book        string          `json:"book"`
		Number      json.RawMessage `json:"number"`
		Text        string          `json:"text"`
		Translation string          `json:"translation"`
		Name        string          `json:"name"`
		Note        string          `json:"note"`
		DateAdded   json.RawMessage `json:"dateAdded"`
		Tags        []string        `json:"tags"`
	}
	if err := json.Unmarshal(doc, &loose); err != nil {
		return nil, false, err
	}

	f := &Favorite{
		ID:          loose.ID,
		Kind:        loose.Kind,
		Surah:       int(coerceInt64(loose.Surah, 0)),
		Ayah:        int(coerceInt64(loose.Ayah, 0)),
		Book:        loose.Book,
		Number:      int(coerceInt64(loose.Number, 0)),
		Text:        loose.Text,
		Translation: loose.Translation,
		Name:        loose.Name,
		Note:        loose.Note,
		DateAdded:   coerceTime(loose.DateAdded),
		Tags:        loose.Tags,
	}

	changed := false
	if f.DateAdded.IsZero() {
		f.DateAdded = now
		changed = true
	}
	if f.Tags == nil {
		f.Tags = []string{}
		changed = true
	}
	if f.Kind == FavoriteKindHadith {
		if slug := CanonicalBookSlug(f.Book); slug != f.Book {
			f.Book = slug
			changed = true
		}
	}
	if id := f.DerivedID(); id != "" && id != f.ID {
		f.ID = id
		changed = true
	}
	return f, changed, nil
}

// decodeLegacyTask parses a stored task document, coercing id to numeric
// (falling back to the row key), done to a strict boolean and text to a
// string. rowKey is the store-assigned key the document lives under.
func decodeLegacyTask(doc []byte, rowKey int64) (*Task, bool) {
	var loose struct {
		ID   json.RawMessage `json:"id"`
		Text json.RawMessage `json:"text"`
		Done json.RawMessage `json:"done"`
	}
	if err := json.Unmarshal(doc, &loose); err != nil {
		// Undecodable document: rebuild a minimal task under the row key.
		return &Task{ID: rowKey}, true
	}

	t := &Task{}
	changed := false

	switch {
	case loose.ID == nil:
		t.ID = rowKey
	default:
		id := coerceInt64(loose.ID, 0)
		if id == 0 {
			// Row keys are unique; a clock-derived fallback is not.
			id = rowKey
		}
		t.ID = id
	}

	t.Text = coerceString(loose.Text)
	t.Done = coerceBool(loose.Done)

	// A write-back is needed whenever the canonical encoding differs from
	// what is stored. Both sides go through a map round trip so key order
	// does not matter.
	canonical, _ := json.Marshal(t)
	if !jsonDocEqual(doc, canonical) {
		changed = true
	}
	return t, changed
}

func jsonDocEqual(a, b []byte) bool {
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	ab, errA := json.Marshal(av)
	bb, errB := json.Marshal(bv)
	return errA == nil && errB == nil && string(ab) == string(bb)
}

// --- coercion helpers ---

func coerceString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

func coerceInt64(raw json.RawMessage, fallback int64) int64 {
	if raw == nil {
		return fallback
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int64(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func coerceFloat64(raw json.RawMessage, fallback float64) float64 {
	if raw == nil {
		return fallback
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func coerceBool(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "true" || s == "1"
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	return false
}

// coerceTime accepts an RFC3339 string or unix-milliseconds number.
func coerceTime(raw json.RawMessage) time.Time {
	if raw == nil {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		return time.Time{}
	}
	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil && millis > 0 {
		return time.UnixMilli(millis).UTC()
	}
	return time.Time{}
}
