package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Option struct {
	Text string `json:"text"`
}

// UnmarshalJSON accepts either {"text": "..."} or a bare string.
func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Text = s
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option must be a string or an object with text: %w", err)
	}
	o.Text = obj.Text
	return nil
}

type Question struct {
	Question      string   `json:"question"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

// Validate checks that the question has text, at least one option and a
// correct answer matching exactly one option.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("question %q has no options", q.Question)
	}
	answer := strings.TrimSpace(q.CorrectAnswer)
	if answer == "" {
		return fmt.Errorf("question %q has no correct answer", q.Question)
	}
	matches := 0
	for _, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(opt.Text), answer) {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("question %q: correct answer matches %d options", q.Question, matches)
	}
	return nil
}

type QuizData struct {
	Questions []Question `json:"questions"`
}

func (d QuizData) Validate() error {
	if len(d.Questions) == 0 {
		return fmt.Errorf("quiz has no questions")
	}
	for i, q := range d.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// Quiz is a generated question set owned by an Article.
type Quiz struct {
	ID            int64
	ArticleID     int64
	Data          QuizData
	RelatedTopics []string
	CreatedAt     time.Time
}

// Generation is what the generation backend produces for one article.
type Generation struct {
	Quiz          QuizData
	RelatedTopics []string
}

type GenerateResult struct {
	QuizID        int64       `json:"quiz_id"`
	Article       ArticleView `json:"article"`
	Quiz          QuizData    `json:"quiz"`
	RelatedTopics []string    `json:"related_topics"`
	Cached        bool        `json:"cached"`
}

type QuizSummary struct {
	ID           int64     `json:"id"`
	ArticleID    int64     `json:"article_id"`
	ArticleTitle string    `json:"article_title"`
	ArticleURL   string    `json:"article_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type QuizDetail struct {
	ID            int64       `json:"id"`
	Article       ArticleView `json:"article"`
	Quiz          QuizData    `json:"quiz"`
	RelatedTopics []string    `json:"related_topics"`
}
