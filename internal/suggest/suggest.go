// Package suggest picks meal suggestions for the current time of day and a
// dietary preference.
package suggest

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/reminder"
	"gopkg.in/yaml.v3"
)

//go:embed meals.yaml
var defaultMeals []byte

type Bucket string

const (
	Breakfast    Bucket = "Breakfast"
	Lunch        Bucket = "Lunch"
	EveningSnack Bucket = "Evening Snack"
	Dinner       Bucket = "Dinner"
)

var Buckets = []Bucket{Breakfast, Lunch, EveningSnack, Dinner}

// BucketFor maps the local hour of t to a meal bucket.
func BucketFor(t time.Time) Bucket {
	return bucketForHour(t.Hour())
}

func bucketForHour(h int) Bucket {
	switch {
	case h >= 5 && h < 11:
		return Breakfast
	case h >= 11 && h < 15:
		return Lunch
	case h >= 15 && h < 19:
		return EveningSnack
	default:
		return Dinner
	}
}

type Preference string

const (
	All    Preference = "all"
	Veg    Preference = "veg"
	NonVeg Preference = "non-veg"
	Hostel Preference = "hostel"
)

var Preferences = []Preference{All, Veg, NonVeg, Hostel}

// ParsePreference accepts the four known preferences. An empty string means
// All; anything else is a validation error.
func ParsePreference(s string) (Preference, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return All, nil
	}
	for _, p := range Preferences {
		if string(p) == s {
			return p, nil
		}
	}
	return "", apperr.Validation("preference must be one of: all, veg, non-veg, hostel (got %q)", s)
}

type DietType string

const (
	DietVeg    DietType = "veg"
	DietNonVeg DietType = "non-veg"
)

func (d DietType) Label() string {
	switch d {
	case DietVeg:
		return "Vegetarian"
	case DietNonVeg:
		return "Non-Vegetarian"
	default:
		return string(d)
	}
}

type Entry struct {
	Name       string   `yaml:"name" json:"name"`
	DietType   DietType `yaml:"type" json:"dietType"`
	Properties []string `yaml:"properties" json:"properties"`
}

// Catalog is an immutable bucket -> preference -> entries table.
type Catalog struct {
	table map[Bucket]map[Preference][]Entry
}

// Load parses a YAML catalog. Every bucket must list entries for every
// preference.
func Load(r io.Reader) (*Catalog, error) {
	raw := map[Bucket]map[Preference][]Entry{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode meal catalog: %w", err)
	}
	for _, b := range Buckets {
		prefs, ok := raw[b]
		if !ok {
			return nil, fmt.Errorf("meal catalog: missing bucket %q", b)
		}
		for _, p := range Preferences {
			entries := prefs[p]
			if len(entries) == 0 {
				return nil, fmt.Errorf("meal catalog: bucket %q has no %q entries", b, p)
			}
			for i, e := range entries {
				if e.Name == "" {
					return nil, fmt.Errorf("meal catalog: %s/%s entry %d has no name", b, p, i)
				}
				if e.DietType != DietVeg && e.DietType != DietNonVeg {
					return nil, fmt.Errorf("meal catalog: %s/%s %q has diet type %q", b, p, e.Name, e.DietType)
				}
			}
		}
	}
	return &Catalog{table: raw}, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultMeals))
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile loads a catalog from path, or the built-in one when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open meal catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Suggest returns the bucket for now and a copy of its entries for pref.
func (c *Catalog) Suggest(now time.Time, pref Preference) (Bucket, []Entry, error) {
	return c.suggest(BucketFor(now), pref)
}

// SuggestAt is Suggest for a "HH:MM" time of day.
func (c *Catalog) SuggestAt(clock string, pref Preference) (Bucket, []Entry, error) {
	h, _, err := reminder.ParseClock(clock)
	if err != nil {
		return "", nil, err
	}
	return c.suggest(bucketForHour(h), pref)
}

func (c *Catalog) suggest(b Bucket, pref Preference) (Bucket, []Entry, error) {
	pref, err := ParsePreference(string(pref))
	if err != nil {
		return "", nil, err
	}
	src := c.table[b][pref]
	out := make([]Entry, len(src))
	for i, e := range src {
		e.Properties = append([]string(nil), e.Properties...)
		out[i] = e
	}
	return b, out, nil
}
