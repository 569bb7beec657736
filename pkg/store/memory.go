package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xhad/wikiquiz/internal/models"
)

// MemoryStore is an in-process store with the same semantics as
// PostgresStore. Contents are lost when the process exits.
type MemoryStore struct {
	mu            sync.RWMutex
	articles      map[int64]models.Article
	articlesByURL map[string]int64
	quizzes       map[int64]models.Quiz
	nextArticleID int64
	nextQuizID    int64
	now           func() time.Time
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		articles:      make(map[int64]models.Article),
		articlesByURL: make(map[string]int64),
		quizzes:       make(map[int64]models.Quiz),
		now:           time.Now,
	}
}

func (ms *MemoryStore) FindArticleByURL(ctx context.Context, url string) (*models.Article, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	id, ok := ms.articlesByURL[url]
	if !ok {
		return nil, ErrNotFound
	}
	article := ms.articles[id]
	return &article, nil
}

func (ms *MemoryStore) LatestQuiz(ctx context.Context, articleID int64) (*models.Quiz, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	// Ids only grow, so the highest id is the newest quiz whatever the clock did.
	var latest *models.Quiz
	for _, quiz := range ms.quizzes {
		if quiz.ArticleID != articleID {
			continue
		}
		if latest == nil || quiz.ID > latest.ID {
			q := quiz
			latest = &q
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (ms *MemoryStore) CreateArticle(ctx context.Context, article *models.Article) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.createArticle(article)
}

func (ms *MemoryStore) createArticle(article *models.Article) error {
	if _, exists := ms.articlesByURL[article.URL]; exists {
		return ErrDuplicateURL
	}
	ms.nextArticleID++
	article.ID = ms.nextArticleID
	article.CreatedAt = ms.now().UTC()
	ms.articles[article.ID] = *article
	ms.articlesByURL[article.URL] = article.ID
	return nil
}

func (ms *MemoryStore) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.createQuiz(quiz)
}

func (ms *MemoryStore) createQuiz(quiz *models.Quiz) error {
	if _, ok := ms.articles[quiz.ArticleID]; !ok {
		return ErrNotFound
	}
	ms.nextQuizID++
	quiz.ID = ms.nextQuizID
	quiz.CreatedAt = ms.now().UTC()
	ms.quizzes[quiz.ID] = *quiz
	return nil
}

func (ms *MemoryStore) SaveQuiz(ctx context.Context, article *models.Article, quiz *models.Quiz) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	created := article.ID == 0
	if created {
		if err := ms.createArticle(article); err != nil {
			return err
		}
	}
	quiz.ArticleID = article.ID
	if err := ms.createQuiz(quiz); err != nil {
		if created {
			delete(ms.articlesByURL, article.URL)
			delete(ms.articles, article.ID)
			article.ID = 0
		}
		return err
	}
	return nil
}

func (ms *MemoryStore) ListQuizzes(ctx context.Context) ([]models.QuizSummary, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	summaries := make([]models.QuizSummary, 0, len(ms.quizzes))
	for _, quiz := range ms.quizzes {
		article := ms.articles[quiz.ArticleID]
		summaries = append(summaries, models.QuizSummary{
			ID:           quiz.ID,
			ArticleID:    article.ID,
			ArticleTitle: article.Title,
			ArticleURL:   article.URL,
			CreatedAt:    quiz.CreatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID > summaries[j].ID
	})
	return summaries, nil
}

func (ms *MemoryStore) GetQuiz(ctx context.Context, id int64) (*models.Quiz, *models.Article, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	quiz, ok := ms.quizzes[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	article := ms.articles[quiz.ArticleID]
	return &quiz, &article, nil
}

func (ms *MemoryStore) Close() {}
