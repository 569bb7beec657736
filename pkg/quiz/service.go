// Package quiz coordinates the quiz pipeline: validate, check the store,
// fetch, extract, generate and persist.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/wikiquiz/internal/models"
	"github.com/xhad/wikiquiz/internal/types"
	"github.com/xhad/wikiquiz/pkg/processor"
	"github.com/xhad/wikiquiz/pkg/scraper"
	"github.com/xhad/wikiquiz/pkg/store"
	"go.uber.org/zap"
)

// Pipeline stages reported to a ProgressFunc.
const (
	StageValidating = "validating"
	StageCacheHit   = "cache_hit"
	StageFetching   = "fetching"
	StageExtracting = "extracting"
	StageEntities   = "entities"
	StageGenerating = "generating"
	StageSaving     = "saving"
	StageDone       = "done"
)

type ProgressFunc func(stage string)

type Service struct {
	validator types.URLValidator
	fetcher   types.Fetcher
	entities  types.EntityExtractor
	generator types.Generator
	store     types.Store
	log       *zap.Logger
}

type Option func(*Service)

func WithValidator(v types.URLValidator) Option {
	return func(s *Service) { s.validator = v }
}

func WithEntityExtractor(e types.EntityExtractor) Option {
	return func(s *Service) { s.entities = e }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(st types.Store, fetcher types.Fetcher, generator types.Generator, opts ...Option) *Service {
	s := &Service{
		validator: scraper.NewValidator("", nil),
		fetcher:   fetcher,
		entities:  processor.New(),
		generator: generator,
		store:     st,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateQuiz returns the quiz for an article URL, generating and storing it
// on the first request and serving the stored quiz afterwards.
func (s *Service) GenerateQuiz(ctx context.Context, rawURL string) (*models.GenerateResult, error) {
	return s.GenerateQuizWithProgress(ctx, rawURL, nil)
}

func (s *Service) GenerateQuizWithProgress(ctx context.Context, rawURL string, progress ProgressFunc) (*models.GenerateResult, error) {
	report := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}
	url := strings.TrimSpace(rawURL)
	log := s.log.With(zap.String("url", url))

	report(StageValidating)
	if err := s.validator.Validate(url); err != nil {
		return nil, err
	}

	article, result, err := s.cached(ctx, url)
	if err != nil {
		return nil, err
	}
	if result != nil {
		log.Info("serving cached quiz", zap.Int64("quiz_id", result.QuizID))
		report(StageCacheHit)
		report(StageDone)
		return result, nil
	}

	report(StageFetching)
	rawHTML, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	report(StageExtracting)
	extraction := scraper.Extract(rawHTML)
	content := &models.ScrapedContent{
		URL:      url,
		Title:    extraction.Title,
		Summary:  extraction.Summary,
		Sections: extraction.Sections,
		Text:     extraction.Text,
		RawHTML:  rawHTML,
	}

	report(StageEntities)
	content.Entities = s.entities.Extract(content.Text)

	report(StageGenerating)
	generation, err := s.generator.Generate(ctx, content)
	if err != nil {
		return nil, err
	}

	report(StageSaving)
	if article == nil {
		article = models.NewArticle(content)
	}
	quiz := &models.Quiz{Data: generation.Quiz, RelatedTopics: generation.RelatedTopics}

	err = s.store.SaveQuiz(ctx, article, quiz)
	if errors.Is(err, store.ErrDuplicateURL) {
		// Another request stored this URL first; use its article.
		log.Warn("article created concurrently, reusing stored article")
		article, result, err = s.resolveDuplicate(ctx, url, quiz)
		if err != nil {
			return nil, err
		}
		if result != nil {
			report(StageDone)
			return result, nil
		}
	} else if err != nil {
		return nil, fmt.Errorf("saving quiz for %s: %w", url, err)
	}

	log.Info("generated quiz",
		zap.Int64("article_id", article.ID),
		zap.Int64("quiz_id", quiz.ID),
		zap.Int("questions", len(quiz.Data.Questions)))
	report(StageDone)
	return buildResult(article, quiz, false), nil
}

// cached looks up url. It returns the stored article (if any) and, when that
// article already has a quiz, the result to serve.
func (s *Service) cached(ctx context.Context, url string) (*models.Article, *models.GenerateResult, error) {
	article, err := s.store.FindArticleByURL(ctx, url)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("looking up article %s: %w", url, err)
	}

	quiz, err := s.store.LatestQuiz(ctx, article.ID)
	if errors.Is(err, store.ErrNotFound) {
		return article, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("looking up quiz for article %d: %w", article.ID, err)
	}
	return article, buildResult(article, quiz, true), nil
}

// resolveDuplicate handles losing the race to create an article: the winner's
// latest quiz is served, or quiz is attached to the winner's article when it
// has none yet.
func (s *Service) resolveDuplicate(ctx context.Context, url string, quiz *models.Quiz) (*models.Article, *models.GenerateResult, error) {
	article, result, err := s.cached(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if result != nil {
		return article, result, nil
	}
	if article == nil {
		return nil, nil, fmt.Errorf("saving quiz for %s: %w", url, store.ErrDuplicateURL)
	}
	if err := s.store.SaveQuiz(ctx, article, quiz); err != nil {
		return nil, nil, fmt.Errorf("saving quiz for %s: %w", url, err)
	}
	return article, nil, nil
}

// ListQuizzes returns quiz summaries, newest first.
func (s *Service) ListQuizzes(ctx context.Context) ([]models.QuizSummary, error) {
	summaries, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing quizzes: %w", err)
	}
	return summaries, nil
}

// GetQuiz returns a quiz with its article. A missing quiz yields an error
// matching store.ErrNotFound.
func (s *Service) GetQuiz(ctx context.Context, id int64) (*models.QuizDetail, error) {
	quiz, article, err := s.store.GetQuiz(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("quiz %d: %w", id, err)
	}
	return &models.QuizDetail{
		ID:            quiz.ID,
		Article:       article.View(),
		Quiz:          quiz.Data,
		RelatedTopics: topicsOrEmpty(quiz.RelatedTopics),
	}, nil
}

func buildResult(article *models.Article, quiz *models.Quiz, cached bool) *models.GenerateResult {
	return &models.GenerateResult{
		QuizID:        quiz.ID,
		Article:       article.View(),
		Quiz:          quiz.Data,
		RelatedTopics: topicsOrEmpty(quiz.RelatedTopics),
		Cached:        cached,
	}
}

func topicsOrEmpty(topics []string) []string {
	if topics == nil {
		return []string{}
	}
	return topics
}
