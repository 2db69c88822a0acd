package command

import (
	"strings"
)

type Symbol string

const (
	None       Symbol = ""
	Next       Symbol = "NEXT"
	Back       Symbol = "BACK"
	Read       Symbol = "READ"
	Stop       Symbol = "STOP"
	ScrollUp   Symbol = "SCROLL_UP"
	ScrollDown Symbol = "SCROLL_DOWN"
	Click      Symbol = "CLICK"
	Yes        Symbol = "YES"
	No         Symbol = "NO"
)

func (s Symbol) String() string {
	if s == None {
		return "NONE"
	}
	return string(s)
}

// ParseSymbol accepts the wire form of a symbol, case-insensitive.
func ParseSymbol(s string) (Symbol, bool) {
	switch sym := Symbol(strings.ToUpper(strings.TrimSpace(s))); sym {
	case Next, Back, Read, Stop, ScrollUp, ScrollDown, Click, Yes, No:
		return sym, true
	}
	return None, false
}

type MatchKind string

const (
	// MatchContains fires when any keyword appears anywhere in the transcript.
	MatchContains MatchKind = "contains"
	// MatchSuffix fires when the transcript ends with a keyword on a word boundary.
	MatchSuffix MatchKind = "suffix"
	// MatchWord fires when a keyword equals one of the transcript words.
	MatchWord MatchKind = "word"
)

type Entry struct {
	Keywords             []string  `yaml:"keywords"`
	Symbol               Symbol    `yaml:"symbol"`
	RequiresConfirmation bool      `yaml:"confirm"`
	Prompt               string    `yaml:"prompt"`
	Match                MatchKind `yaml:"-"`
}

// Vocabulary is an ordered keyword table; earlier entries take priority.
type Vocabulary struct {
	Name    string    `yaml:"name"`
	Match   MatchKind `yaml:"match"`
	Entries []Entry   `yaml:"entries"`
}

// Recognize returns the first entry whose keywords match the normalized
// transcript.
func (v Vocabulary) Recognize(normalized string) (Entry, bool) {
	if normalized == "" {
		return Entry{}, false
	}

	var words []string
	for _, e := range v.Entries {
		kind := e.Match
		if kind == "" {
			kind = v.Match
		}
		for _, kw := range e.Keywords {
			switch kind {
			case MatchSuffix:
				if hasWordSuffix(normalized, kw) {
					return e, true
				}
			case MatchWord:
				if words == nil {
					words = strings.Fields(normalized)
				}
				if containsPhrase(words, strings.Fields(kw)) {
					return e, true
				}
			default:
				if strings.Contains(normalized, kw) {
					return e, true
				}
			}
		}
	}

	return Entry{}, false
}

// Lookup finds the first entry producing sym.
func (v Vocabulary) Lookup(sym Symbol) (Entry, bool) {
	for _, e := range v.Entries {
		if e.Symbol == sym {
			return e, true
		}
	}
	return Entry{}, false
}

// Recognize maps a normalized transcript to a command symbol, or None.
func Recognize(normalized string, v Vocabulary) Symbol {
	e, ok := v.Recognize(normalized)
	if !ok {
		return None
	}
	return e.Symbol
}

func hasWordSuffix(text, kw string) bool {
	if !strings.HasSuffix(text, kw) {
		return false
	}
	rest := text[:len(text)-len(kw)]
	return rest == "" || strings.HasSuffix(rest, " ")
}

func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return false
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j := range phrase {
			if words[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
