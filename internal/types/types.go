package types

import (
	"context"

	"github.com/xhad/wikiquiz/internal/models"
)

// Core interfaces consumed by the quiz orchestrator.
type URLValidator interface {
	Validate(rawURL string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type EntityExtractor interface {
	Extract(text string) models.EntitySummary
}

type Generator interface {
	Generate(ctx context.Context, content *models.ScrapedContent) (*models.Generation, error)
}

// Store persists articles and quizzes. SaveQuiz creates the article when its
// ID is zero and always creates the quiz, both in one transaction.
type Store interface {
	FindArticleByURL(ctx context.Context, url string) (*models.Article, error)
	LatestQuiz(ctx context.Context, articleID int64) (*models.Quiz, error)
	SaveQuiz(ctx context.Context, article *models.Article, quiz *models.Quiz) error
	ListQuizzes(ctx context.Context) ([]models.QuizSummary, error)
	GetQuiz(ctx context.Context, id int64) (*models.Quiz, *models.Article, error)
	Close()
}
