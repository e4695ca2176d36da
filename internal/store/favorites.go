// ABOUTME: Favorite record type with deterministic content-derived ids
// ABOUTME: Hadith book catalog with legacy-name remapping, embedded as TOML

package store

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Favorite kinds.
const (
	FavoriteKindVerse  = "verse"
	FavoriteKindHadith = "hadith"
)

// Favorite is a user-saved Quran verse or Hadith. The id is derived from
// the content coordinates so re-favoriting the same item is idempotent.
type Favorite struct {
	ID          string    `json:"id"`
	Kind        string    `json:"type"`
	Surah       int       `json:"surah,omitempty"`
	Ayah        int       `json:"ayah,omitempty"`
	Book        string    `json:"book,omitempty"` // canonical slug
	Number      int       `json:"number,omitempty"`
	Text        string    `json:"text"`
	Translation string    `json:"translation,omitempty"`
	Name        string    `json:"name,omitempty"` // surah name or book title
	Note        string    `json:"note,omitempty"`
	DateAdded   time.Time `json:"dateAdded"`
	Tags        []string  `json:"tags"`
}

// VerseFavoriteID derives the favorite id for a Quran verse.
func VerseFavoriteID(surah, ayah int) string {
	return fmt.Sprintf("verse:%d:%d", surah, ayah)
}

// HadithFavoriteID derives the favorite id for a hadith. The book is
// normalized to its canonical slug first.
func HadithFavoriteID(book string, number int) string {
	return fmt.Sprintf("hadith:%s:%d", CanonicalBookSlug(book), number)
}

// DerivedID recomputes the id from the favorite's content coordinates.
// Returns "" for unknown kinds, leaving the stored id untouched.
func (f *Favorite) DerivedID() string {
	switch f.Kind {
	case FavoriteKindVerse:
		return VerseFavoriteID(f.Surah, f.Ayah)
	case FavoriteKindHadith:
		return HadithFavoriteID(f.Book, f.Number)
	default:
		return ""
	}
}

//go:embed books.toml
var booksTOML []byte

// Book is one entry of the hadith collection catalog.
type Book struct {
	Slug    string   `toml:"slug"`
	Name    string   `toml:"name"`
	Aliases []string `toml:"aliases"`
}

type bookCatalog struct {
	Books []Book `toml:"book"`
}

var bookSlugs = loadBookCatalog()

func loadBookCatalog() map[string]string {
	var catalog bookCatalog
	if err := toml.Unmarshal(booksTOML, &catalog); err != nil {
		panic(fmt.Sprintf("parsing embedded book catalog: %v", err))
	}
	slugs := make(map[string]string)
	for _, b := range catalog.Books {
		slugs[normalizeBookName(b.Slug)] = b.Slug
		slugs[normalizeBookName(b.Name)] = b.Slug
		for _, alias := range b.Aliases {
			slugs[normalizeBookName(alias)] = b.Slug
		}
	}
	return slugs
}

// CanonicalBookSlug maps a hadith book name, legacy identifier or alias to
// its canonical slug. Unknown names are returned unchanged.
func CanonicalBookSlug(name string) string {
	if slug, ok := bookSlugs[normalizeBookName(name)]; ok {
		return slug
	}
	return name
}

func normalizeBookName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, " ", "-")
	return name
}
