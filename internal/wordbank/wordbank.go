// Package wordbank loads the native/translation word pairs used by the
// word matching game.
package wordbank

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrEmpty is returned when a word file parses but holds no usable entries.
var ErrEmpty = errors.New("word bank is empty")

// Entry is one word pair.
type Entry struct {
	ID          string `json:"id,omitempty"`
	Native      string `json:"native"`
	Translation string `json:"translation"`
	Image       string `json:"image,omitempty"`
}

// rawEntry accepts both the current keys and the older tamil/english ones.
type rawEntry struct {
	Native      string `json:"native"`
	Translation string `json:"translation"`
	Tamil       string `json:"tamil"`
	English     string `json:"english"`
	Image       string `json:"image"`
}

// Defaults returns the built-in word pairs.
func Defaults() []Entry {
	return []Entry{
		{Native: "பூ", Translation: "flower", Image: "flower.png"},
		{Native: "பால்", Translation: "milk", Image: "milk.png"},
		{Native: "நீர்", Translation: "water", Image: "water.png"},
	}
}

// Parse decodes a {"words": [...]} document. Entries missing either side
// are skipped.
func Parse(data []byte) ([]Entry, error) {
	var doc struct {
		Words []rawEntry `json:"words"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse word bank: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Words))
	for _, w := range doc.Words {
		e := Entry{Native: w.Native, Translation: w.Translation, Image: w.Image}
		if e.Native == "" {
			e.Native = w.Tamil
		}
		if e.Translation == "" {
			e.Translation = w.English
		}
		e.Native = strings.TrimSpace(e.Native)
		e.Translation = strings.TrimSpace(e.Translation)
		if e.Native == "" || e.Translation == "" {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	return entries, nil
}

// Load reads a word file. On any failure it returns the built-in defaults
// together with the error so the caller can log it and carry on.
func Load(path string) ([]Entry, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), fmt.Errorf("read word bank: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return Defaults(), err
	}
	return entries, nil
}

// Merge appends extra to base, skipping entries whose translation is
// already present (case-insensitive).
func Merge(base, extra []Entry) []Entry {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]Entry, 0, len(base)+len(extra))
	for _, list := range [][]Entry{base, extra} {
		for _, e := range list {
			key := strings.ToLower(e.Translation)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, e)
		}
	}
	return out
}

// Sample returns up to n distinct entries in random order.
func Sample(rng *rand.Rand, entries []Entry, n int) []Entry {
	n = min(n, len(entries))
	out := make([]Entry, 0, n)
	for _, i := range rng.Perm(len(entries))[:n] {
		out = append(out, entries[i])
	}
	return out
}
