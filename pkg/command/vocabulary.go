package command

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	Blind   = "blind"
	Motor   = "motor"
	Confirm = "confirm"
)

var (
	ErrUnknownVocabulary = errors.New("unknown vocabulary")
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
)

//go:embed vocabularies.yaml
var defaultVocabularies []byte

type Set struct {
	byName map[string]Vocabulary
}

type vocabularyFile struct {
	Vocabularies []Vocabulary `yaml:"vocabularies"`
}

// Default returns the built-in vocabularies.
func Default() *Set {
	set, err := Parse(defaultVocabularies)
	if err != nil {
		panic(fmt.Sprintf("command: embedded vocabularies are invalid: %v", err))
	}
	return set
}

// Load reads vocabularies from path, or returns the built-in set when path is
// empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Set, error) {
	var file vocabularyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVocabulary, err)
	}

	set := &Set{byName: make(map[string]Vocabulary, len(file.Vocabularies))}
	for _, v := range file.Vocabularies {
		if v.Name == "" {
			return nil, fmt.Errorf("%w: vocabulary without a name", ErrInvalidVocabulary)
		}
		switch v.Match {
		case "":
			v.Match = MatchContains
		case MatchContains, MatchSuffix, MatchWord:
		default:
			return nil, fmt.Errorf("%w: %s has unknown match kind %q", ErrInvalidVocabulary, v.Name, v.Match)
		}
		for i, e := range v.Entries {
			sym, ok := ParseSymbol(string(e.Symbol))
			if !ok {
				return nil, fmt.Errorf("%w: %s has unknown symbol %q", ErrInvalidVocabulary, v.Name, e.Symbol)
			}
			e.Symbol = sym
			// Keywords are compared against normalized text.
			for j, kw := range e.Keywords {
				e.Keywords[j] = Normalize(kw)
			}
			v.Entries[i] = e
		}
		set.byName[v.Name] = v
	}

	return set, nil
}

func (s *Set) Get(name string) (Vocabulary, error) {
	v, ok := s.byName[name]
	if !ok {
		return Vocabulary{}, fmt.Errorf("%w: %s", ErrUnknownVocabulary, name)
	}
	return v, nil
}

func (s *Set) MustGet(name string) Vocabulary {
	v, err := s.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}
