package view

import (
	"strings"

	"github.com/stemsi/exstem-selftest/internal/engine"
)

// Key names as reported by browser KeyboardEvent.key.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowUp    = "ArrowUp"
	KeyArrowRight = "ArrowRight"
	KeyArrowDown  = "ArrowDown"
)

// KeyIntent maps a key press to a navigation intent. Bindings are suppressed
// while a text input or textarea has focus.
func KeyIntent(key string, inputFocused bool) (engine.Intent, bool) {
	if inputFocused {
		return nil, false
	}
	switch key {
	case KeyArrowLeft, KeyArrowUp:
		return engine.Previous{}, true
	case KeyArrowRight, KeyArrowDown:
		return engine.Next{}, true
	}
	return nil, false
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
