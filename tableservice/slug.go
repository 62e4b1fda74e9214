package tableservice

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SlugDelimiter separates an embedded identifier from the readable part of a slug, e.g. "5~red-shoe".
const SlugDelimiter = "~"

const (
	DefaultSlugColumn = "slug"
	DefaultNameColumn = "name"
)

/***** SlugSource *****/

type slugSourceKind int

const (
	slugSourceID slugSourceKind = iota
	slugSourceRecord
)

// SlugSource is the input of slug resolution: either a bare identifier or a record fragment that
// carries the identifier and possibly an already known slug.
type SlugSource struct {
	kind slugSourceKind
	id   int64
	slug string
}

// SlugOfID resolves the slug of the record with the given identifier.
func SlugOfID(id int64) SlugSource {
	return SlugSource{kind: slugSourceID, id: id}
}

// SlugOfRecord resolves the slug of a record fragment. An empty slug means "not known".
func SlugOfRecord(id int64, slug string) SlugSource {
	return SlugSource{kind: slugSourceRecord, id: id, slug: slug}
}

// SlugSourceFromRecord builds a SlugSource from a fetched row.
func SlugSourceFromRecord(record Record, idColumn, slugColumn string) (SlugSource, error) {
	id, err := record.Int64(idColumn)
	if err != nil {
		return SlugSource{}, err
	}

	return SlugOfRecord(id, record.String(slugColumn)), nil
}

func (s SlugSource) ID() int64 {
	return s.id
}

// InlineSlug returns the slug supplied with a record fragment.
func (s SlugSource) InlineSlug() (string, bool) {
	switch s.kind {
	case slugSourceRecord:
		return s.slug, s.slug != ""
	default:
		return "", false
	}
}

/***** slug helpers *****/

// SplitSlug returns the identifier part of a slug that embeds one.
func SplitSlug(value string) (string, bool) {
	idPart, _, found := strings.Cut(value, SlugDelimiter)

	return idPart, found
}

// ParseSlugID returns the identifier embedded in a slug.
func ParseSlugID(value string) (int64, bool, error) {
	idPart, found := SplitSlug(value)
	if !found {
		return 0, false, nil
	}

	id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
	if err != nil {
		return 0, true, ErrInvalidSlugIdentifier
	}

	return id, true, nil
}

// FallbackSlug builds the identifier-dependent slug used when none is stored.
func FallbackSlug(id int64, name string) string {
	return strconv.FormatInt(id, 10) + SlugDelimiter + Webalize(name)
}

/***** Webalize *****/

var asciiReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O", "đ", "d", "Đ", "D", "ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH", "ð", "d", "Ð", "D", "ı", "i",
)

// Webalize normalizes text into a URL friendly slug: transliterated to ASCII, lower-cased, every run of
// characters other than a-z and 0-9 replaced by a single "-", leading and trailing "-" trimmed.
//
//	"Žluťoučký kůň" -> "zlutoucky-kun"
//	"Red Shoe 2"    -> "red-shoe-2"
func Webalize(text string) string {
	ascii, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		asciiReplacer.Replace(text),
	)
	if err != nil {
		ascii = text
	}

	var b strings.Builder
	b.Grow(len(ascii))
	pendingDash := false

	for _, r := range strings.ToLower(ascii) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}

		pendingDash = true
	}

	return b.String()
}
