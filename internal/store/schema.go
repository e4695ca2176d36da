// ABOUTME: Typed settings schema, hard-coded defaults and merge/patch helpers
// ABOUTME: The singleton settings record every other feature reads through

package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SettingsID is the fixed key of the singleton settings record.
const SettingsID = "user-settings"

// SchemaVersion is the current target schema version. Records with a lower
// version (semantic comparison) are migrated on load.
const SchemaVersion = "1.3.0"

// backgroundFixBelow gates the structural background/flag fixes applied to
// records persisted before blur, opacity and uploaded-image metadata existed.
const backgroundFixBelow = "1.3.0"

// Settings is the singleton versioned document holding all user preferences.
type Settings struct {
	ID         string             `json:"id"`
	Version    string             `json:"version"`
	InstallID  string             `json:"installId"`
	Quran      QuranSettings      `json:"quran"`
	Search     SearchSettings     `json:"search"`
	Weather    WeatherSettings    `json:"weather"`
	Hadith     HadithSettings     `json:"hadith"`
	Greeting   GreetingSettings   `json:"greeting"`
	Tasks      TasksSettings      `json:"tasks"`
	Background BackgroundSettings `json:"background"`
}

// QuranSettings selects the text, audio and tafsir editions for verse cards.
type QuranSettings struct {
	TextEdition    string `json:"textEdition"`
	AudioEdition   string `json:"audioEdition"`
	TafsirLanguage string `json:"tafsirLanguage"`
	TafsirID       string `json:"tafsirId"`
}

// SearchSettings holds verse/hadith search preferences.
type SearchSettings struct {
	Language       string `json:"language"`
	ResultsPerPage int    `json:"resultsPerPage"`
}

// WeatherSettings configures the weather card.
type WeatherSettings struct {
	Enabled  bool   `json:"enabled"`
	Location string `json:"location"`
	Units    string `json:"units"` // metric or imperial
}

// HadithSettings selects the hadith collection and translation language.
type HadithSettings struct {
	Book     string `json:"book"` // canonical slug, see books.toml
	Language string `json:"language"`
}

// GreetingSettings configures the time-of-day greeting.
type GreetingSettings struct {
	Enabled bool   `json:"enabled"`
	Name    string `json:"name"`
}

// TasksSettings toggles the todo list.
type TasksSettings struct {
	Enabled bool `json:"enabled"`
}

// BackgroundSettings holds the rotating background image state, including
// the embedded rotation cache owned semantically by the image-cache layer.
type BackgroundSettings struct {
	RefreshInterval int64           `json:"refreshInterval"` // minutes
	LastRefresh     int64           `json:"lastRefresh"`     // unix millis
	CurrentImage    string          `json:"currentImage"`
	FallbackImage   string          `json:"fallbackImage"`
	Source          string          `json:"source"` // rotation, uploaded, fallback
	UploadedImages  []UploadedImage `json:"uploadedImages"`
	RotationIndex   int             `json:"rotationIndex"`
	BlurIntensity   float64         `json:"blurIntensity"`
	Opacity         float64         `json:"opacity"`
	ImageCache      ImageCacheState `json:"imageCache"`
}

// UploadedImage is one user-uploaded background with its full metadata set.
type UploadedImage struct {
	ID               string  `json:"id"`
	URL              string  `json:"url"`
	Name             string  `json:"name"`
	UploadedAt       int64   `json:"uploadedAt"` // unix millis
	OriginalSize     int64   `json:"originalSize"`
	CompressedSize   int64   `json:"compressedSize"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	CompressionRatio float64 `json:"compressionRatio"`
}

// ImageCacheState is the rotation cache sub-record. The store treats it as
// opaque state persisted through the generic settings path.
type ImageCacheState struct {
	Images    []string `json:"images"`
	Index     int      `json:"index"`
	FetchedAt int64    `json:"fetchedAt"` // unix millis
	Category  string   `json:"category"`
}

// DefaultSettings returns a fresh settings record at the current schema
// version. Also used as the merge template during migration, so every field
// here must carry the value a missing leaf should receive.
func DefaultSettings() *Settings {
	return &Settings{
		ID:        SettingsID,
		Version:   SchemaVersion,
		InstallID: uuid.New().String(),
		Quran: QuranSettings{
			TextEdition:    "quran-uthmani",
			AudioEdition:   "ar.alafasy",
			TafsirLanguage: "en",
			TafsirID:       "en-tafisr-ibn-kathir",
		},
		Search: SearchSettings{
			Language:       "en",
			ResultsPerPage: 10,
		},
		Weather: WeatherSettings{
			Enabled: true,
			Units:   "metric",
		},
		Hadith: HadithSettings{
			Book:     "sahih-bukhari",
			Language: "en",
		},
		Greeting: GreetingSettings{
			Enabled: true,
		},
		Tasks: TasksSettings{
			Enabled: true,
		},
		Background: BackgroundSettings{
			RefreshInterval: 30,
			FallbackImage:   "https://images.unsplash.com/photo-1519817650390-64a93db51149",
			Source:          "rotation",
			UploadedImages:  []UploadedImage{},
			BlurIntensity:   8,
			Opacity:         0.85,
			ImageCache: ImageCacheState{
				Images:   []string{},
				Category: "nature",
			},
		},
	}
}

// Clone returns a deep copy via a JSON round trip.
func (s *Settings) Clone() *Settings {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("marshaling settings: %v", err))
	}
	var out Settings
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("unmarshaling settings: %v", err))
	}
	return &out
}

// mergeWithDefaults deep-merges a persisted settings document over the
// default template. Unmarshaling on top of a defaults-initialized struct
// keeps every present leaf and fills every missing one, recursing through
// nested groups; arrays are leaves and replace the default wholesale.
func mergeWithDefaults(raw []byte) (*Settings, error) {
	merged := DefaultSettings()
	if err := json.Unmarshal(raw, merged); err != nil {
		return nil, fmt.Errorf("merging settings over defaults: %w", err)
	}
	merged.ID = SettingsID
	return merged, nil
}

// ApplyPatch shallow-merges the top-level keys of patch onto s and decodes
// the result back through the typed schema, so a patch with the wrong shape
// fails instead of persisting corrupt data. Unknown keys are ignored.
func ApplyPatch(s *Settings, patch map[string]any) (*Settings, error) {
	base, err := settingsAsMap(s)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		base[k] = v
	}
	b, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("marshaling patched settings: %w", err)
	}
	out := s.Clone()
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("patch does not match settings schema: %w", err)
	}
	out.ID = SettingsID
	return out, nil
}

// PatchAtPath resolves a dotted path like "background.blurIntensity"
// against s and returns the top-level patch that sets the leaf to value.
func PatchAtPath(s *Settings, path string, value any) (map[string]any, error) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil, fmt.Errorf("empty settings path")
	}
	if len(segments) == 1 {
		return map[string]any{segments[0]: value}, nil
	}

	base, err := settingsAsMap(s)
	if err != nil {
		return nil, err
	}

	root, ok := base[segments[0]].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("settings path %q: %q is not a nested group", path, segments[0])
	}
	node := root
	for _, seg := range segments[1 : len(segments)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("settings path %q: %q is not a nested group", path, seg)
		}
		node = next
	}
	node[segments[len(segments)-1]] = value

	return map[string]any{segments[0]: root}, nil
}

func settingsAsMap(s *Settings) (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling settings: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling settings: %w", err)
	}
	return m, nil
}
