package utils

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MatchThreshold is the similarity a stored name must exceed to be reused
const MatchThreshold = 0.8

var (
	noiseWords = regexp.MustCompile(`(?i)\b(TV|Network|Channel|Broadcasting)\b`)
	spaces     = regexp.MustCompile(`\s+`)

	// checked in order, first hit replaces the whole name
	acronyms = []struct {
		re   *regexp.Regexp
		name string
	}{
		{regexp.MustCompile(`\bhbo\b`), "HBO"},
		{regexp.MustCompile(`\bcnn\b`), "CNN"},
		{regexp.MustCompile(`\bbbc\b`), "BBC"},
		{regexp.MustCompile(`\babc\b`), "ABC"},
		{regexp.MustCompile(`\bcbs\b`), "CBS"},
		{regexp.MustCompile(`\bnbc\b`), "NBC"},
		{regexp.MustCompile(`\bfox\b`), "FOX"},
	}

	titleCaser = cases.Title(language.Und)
)

// NormalizeName canonicalizes a broadcaster name so spelling variants of the
// same outlet compare equal.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = noiseWords.ReplaceAllString(name, "")
	name = strings.TrimSpace(spaces.ReplaceAllString(name, " "))
	name = titleCaser.String(name)

	lower := strings.ToLower(name)
	for _, a := range acronyms {
		if a.re.MatchString(lower) {
			return a.name
		}
	}
	return name
}

// Similarity scores two names in [0,1] by normalized edit distance,
// ignoring case.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// NameStore is the persistence a NameResolver works against
type NameStore[T any] interface {
	// FindByName matches case-insensitively; found is false when absent
	FindByName(ctx context.Context, name string) (entity T, found bool, err error)
	// List returns every entity in a stable order, lowest id first
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, name string) (T, error)
}

// NameResolver finds the stored entity a free-form name refers to, or
// creates one under the normalized name.
type NameResolver[T any] struct {
	Store  NameStore[T]
	NameOf func(T) string
}

// FindOrCreate resolves name by exact match, then the first entity scoring
// above MatchThreshold, then by creating a new entity.
func (r NameResolver[T]) FindOrCreate(ctx context.Context, name string) (T, bool, error) {
	var zero T
	normalized := NormalizeName(name)

	entity, found, err := r.Store.FindByName(ctx, normalized)
	if err != nil {
		return zero, false, err
	}
	if found {
		return entity, false, nil
	}

	all, err := r.Store.List(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, candidate := range all {
		if Similarity(r.NameOf(candidate), normalized) > MatchThreshold {
			return candidate, false, nil
		}
	}

	created, err := r.Store.Create(ctx, normalized)
	if err != nil {
		return zero, false, err
	}
	return created, true, nil
}
