package proctor

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed layout.json
var embeddedLayout []byte

// Section is one page of questions shown together.
type Section struct {
	Title     string   `json:"title"`
	Round     int      `json:"round"`
	Questions []string `json:"questions"`
}

// DefaultLayout returns the section layout compiled into the binary.
func DefaultLayout() ([]Section, error) {
	return ParseLayout(embeddedLayout)
}

// ParseLayout decodes and validates a layout. Question ids must be unique.
func ParseLayout(raw []byte) ([]Section, error) {
	var sections []Section
	if err := json.Unmarshal(raw, &sections); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if len(sections) == 0 {
		return nil, ErrEmptyLayout
	}

	seen := make(map[string]struct{})
	for i, s := range sections {
		if len(s.Questions) == 0 {
			return nil, fmt.Errorf("section %d (%s) has no questions", i, s.Title)
		}
		for _, q := range s.Questions {
			if _, dup := seen[q]; dup {
				return nil, fmt.Errorf("question %s appears twice", q)
			}
			seen[q] = struct{}{}
		}
	}
	return sections, nil
}

// QuestionCount is the number of questions across all sections.
func QuestionCount(sections []Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Questions)
	}
	return n
}
