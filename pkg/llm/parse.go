package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/xhad/wikiquiz/internal/models"
)

// StripCodeFence removes a surrounding ``` fence and an optional language tag.
func StripCodeFence(content string) string {
	cleaned := strings.TrimSpace(content)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.Trim(cleaned, "`")

	if idx := strings.IndexAny(cleaned, "{["); idx > 0 && isLanguageTag(strings.TrimSpace(cleaned[:idx])) {
		cleaned = cleaned[idx:]
	}
	return strings.TrimSpace(cleaned)
}

func isLanguageTag(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// ParseQuiz decodes a quiz reply. Both {"questions": [...]} and a bare
// question array are accepted.
func ParseQuiz(content string) (*models.QuizData, error) {
	cleaned := []byte(StripCodeFence(content))

	var quiz models.QuizData
	switch {
	case bytes.HasPrefix(cleaned, []byte("[")):
		if err := json.Unmarshal(cleaned, &quiz.Questions); err != nil {
			return nil, fmt.Errorf("invalid quiz JSON: %w", err)
		}
	default:
		var envelope struct {
			Questions *[]models.Question `json:"questions"`
		}
		if err := json.Unmarshal(cleaned, &envelope); err != nil {
			return nil, fmt.Errorf("invalid quiz JSON: %w", err)
		}
		if envelope.Questions == nil {
			return nil, fmt.Errorf("quiz JSON has no questions field")
		}
		quiz.Questions = *envelope.Questions
	}

	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// ParseTopics decodes a {"topics": [...]} reply. A missing field yields no topics.
func ParseTopics(content string) ([]string, error) {
	var envelope struct {
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &envelope); err != nil {
		return nil, fmt.Errorf("invalid topics JSON: %w", err)
	}

	topics := make([]string, 0, len(envelope.Topics))
	for _, topic := range envelope.Topics {
		if topic = strings.TrimSpace(topic); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics, nil
}
