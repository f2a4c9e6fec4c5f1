package models

import (
	"fmt"
	"strings"
)

// DefaultBellsFilter allows the common ring sizes: 3, 4, 5, 6, 8, 10 and 12+ bells.
const DefaultBellsFilter = "345680T"

// BellsFilterChars lists the characters accepted in a bells filter.
// Digits 3-9 mean that many bells, 0 means ten, E eleven and T twelve or more.
const BellsFilterChars = "34567890ET"

// Preferences holds the single row of user display preferences.
type Preferences struct {
	Bells      string `json:"bells"`
	Unringable bool   `json:"unringable"`
}

// DefaultPreferences returns the preferences seeded in a new database.
func DefaultPreferences() Preferences {
	return Preferences{Bells: DefaultBellsFilter}
}

// ValidateBellsFilter checks that every character of the filter is known.
func ValidateBellsFilter(filter string) error {
	for _, r := range filter {
		if !strings.ContainsRune(BellsFilterChars, r) {
			return fmt.Errorf("invalid bells filter character %q", r)
		}
	}
	return nil
}

// bellsFilterChar maps a ring size to its filter character.
func bellsFilterChar(bells int) rune {
	switch {
	case bells >= 12:
		return 'T'
	case bells == 11:
		return 'E'
	case bells == 10:
		return '0'
	case bells >= 3:
		return rune('0' + bells)
	default:
		return 0
	}
}

// Shows reports whether a tower passes these preferences.
func (p Preferences) Shows(t Tower) bool {
	if t.Unringable && !p.Unringable {
		return false
	}
	c := bellsFilterChar(t.Bells)
	if c == 0 {
		return false
	}
	return strings.ContainsRune(p.Bells, c)
}
