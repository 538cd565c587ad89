package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Problem difficulty levels.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Problem represents a coding challenge in the catalog together with its hidden test cases.
type Problem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Slug        string         `gorm:"size:255;uniqueIndex" json:"slug"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Difficulty  string         `gorm:"size:16;not null;index" json:"difficulty"`
	Topics      string         `gorm:"type:text" json:"topics"`
	Template    string         `gorm:"type:text" json:"template"`
	Inputs      datatypes.JSON `json:"inputs"`
	Outputs     datatypes.JSON `json:"outputs"`
	CreatedBy   string         `gorm:"size:64" json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// BeforeCreate derives the slug from the title when none was set.
func (p *Problem) BeforeCreate(*gorm.DB) error {
	if strings.TrimSpace(p.Slug) == "" {
		p.Slug = Slugify(p.Title)
	}
	return nil
}

// Slugify lowercases the title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// TopicsSlice returns the topics as a slice of strings.
func (p Problem) TopicsSlice() []string {
	if p.Topics == "" {
		return nil
	}

	parts := strings.Split(p.Topics, ",")
	topics := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			topics = append(topics, trimmed)
		}
	}
	return topics
}

// TestCases decodes the stored inputs and expected outputs. Both slices have the same length.
func (p Problem) TestCases() ([]json.RawMessage, []json.RawMessage, error) {
	inputs, err := decodeJSONArray(p.Inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("decode inputs: %w", err)
	}
	outputs, err := decodeJSONArray(p.Outputs)
	if err != nil {
		return nil, nil, fmt.Errorf("decode outputs: %w", err)
	}
	if len(inputs) != len(outputs) {
		return nil, nil, fmt.Errorf("problem %d has %d inputs but %d outputs", p.ID, len(inputs), len(outputs))
	}
	return inputs, outputs, nil
}

func decodeJSONArray(raw datatypes.JSON) ([]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var values []json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

// NormalizeDifficulty maps user supplied difficulty labels onto the canonical values.
func NormalizeDifficulty(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "easy":
		return DifficultyEasy, true
	case "medium":
		return DifficultyMedium, true
	case "hard":
		return DifficultyHard, true
	default:
		return "", false
	}
}

// DifficultyPoints returns the leaderboard weight for a solved problem of the given difficulty.
func DifficultyPoints(difficulty string) int {
	switch difficulty {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 0
	}
}
