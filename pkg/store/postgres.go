package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xhad/wikiquiz/internal/models"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	url VARCHAR(500) NOT NULL UNIQUE,
	title VARCHAR(500) NOT NULL,
	summary TEXT,
	sections JSONB NOT NULL DEFAULT '[]',
	entities JSONB NOT NULL DEFAULT '{}',
	raw_html TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS quizzes (
	id BIGSERIAL PRIMARY KEY,
	article_id BIGINT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	quiz_data JSONB NOT NULL,
	related_topics JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS quizzes_article_id_idx ON quizzes (article_id);
`

const foreignKeyViolation = "23503"

type PostgresConfig struct {
	ConnString  string
	AutoMigrate bool
	Logger      *zap.Logger
}

// PostgresStore keeps articles and quizzes in PostgreSQL.
type PostgresStore struct {
	config PostgresConfig
	pool   *pgxpool.Pool
	log    *zap.Logger
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewWithConfig(ctx context.Context, config PostgresConfig) (*PostgresStore, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	ps := &PostgresStore{
		config: config,
		pool:   pool,
		log:    config.Logger,
	}

	if config.AutoMigrate {
		if err := ps.initialize(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return ps, nil
}

func (ps *PostgresStore) initialize(ctx context.Context) error {
	if _, err := ps.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	ps.log.Debug("database schema ready")
	return nil
}

const articleColumns = `a.id, a.url, a.title, a.summary, a.sections, a.entities, a.raw_html, a.created_at`

func scanArticle(row pgx.Row, extra ...any) (*models.Article, error) {
	var (
		article  models.Article
		summary  *string
		sections []byte
		entities []byte
	)
	dest := append([]any{
		&article.ID,
		&article.URL,
		&article.Title,
		&summary,
		&sections,
		&entities,
		&article.RawHTML,
		&article.CreatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if summary != nil {
		article.Summary = *summary
	}
	if err := json.Unmarshal(sections, &article.Sections); err != nil {
		return nil, fmt.Errorf("decoding sections of article %d: %w", article.ID, err)
	}
	if err := json.Unmarshal(entities, &article.Entities); err != nil {
		return nil, fmt.Errorf("decoding entities of article %d: %w", article.ID, err)
	}
	return &article, nil
}

func (ps *PostgresStore) FindArticleByURL(ctx context.Context, url string) (*models.Article, error) {
	row := ps.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.url = $1`, url)
	article, err := scanArticle(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}
	return article, err
}

// LatestQuiz returns the newest quiz of an article by id.
func (ps *PostgresStore) LatestQuiz(ctx context.Context, articleID int64) (*models.Quiz, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT id, article_id, quiz_data, related_topics, created_at
		FROM quizzes
		WHERE article_id = $1
		ORDER BY id DESC
		LIMIT 1`, articleID)

	var quizData, topics []byte
	quiz := &models.Quiz{}
	if err := row.Scan(&quiz.ID, &quiz.ArticleID, &quizData, &topics, &quiz.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query quiz: %w", err)
	}
	if err := decodeQuiz(quiz, quizData, topics); err != nil {
		return nil, err
	}
	return quiz, nil
}

// CreateArticle inserts article and fills in its id and creation time. It
// returns ErrDuplicateURL when the URL is already stored.
func (ps *PostgresStore) CreateArticle(ctx context.Context, article *models.Article) error {
	return createArticle(ctx, ps.pool, article)
}

func createArticle(ctx context.Context, q querier, article *models.Article) error {
	sections, err := json.Marshal(nonNil(article.Sections))
	if err != nil {
		return fmt.Errorf("encoding sections: %w", err)
	}
	entities, err := json.Marshal(article.Entities)
	if err != nil {
		return fmt.Errorf("encoding entities: %w", err)
	}
	var summary *string
	if article.Summary != "" {
		s := sanitizeUTF8(article.Summary)
		summary = &s
	}

	err = q.QueryRow(ctx, `
		INSERT INTO articles (url, title, summary, sections, entities, raw_html)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url) DO NOTHING
		RETURNING id, created_at`,
		article.URL,
		sanitizeUTF8(article.Title),
		summary,
		sections,
		entities,
		sanitizeUTF8(article.RawHTML),
	).Scan(&article.ID, &article.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateURL
	}
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// CreateQuiz inserts quiz for an existing article. It returns ErrNotFound
// when the article does not exist.
func (ps *PostgresStore) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	return createQuiz(ctx, ps.pool, quiz)
}

func createQuiz(ctx context.Context, q querier, quiz *models.Quiz) error {
	quizData, err := json.Marshal(quiz.Data)
	if err != nil {
		return fmt.Errorf("encoding quiz: %w", err)
	}
	topics, err := json.Marshal(nonNil(quiz.RelatedTopics))
	if err != nil {
		return fmt.Errorf("encoding related topics: %w", err)
	}

	err = q.QueryRow(ctx, `
		INSERT INTO quizzes (article_id, quiz_data, related_topics)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		quiz.ArticleID, quizData, topics,
	).Scan(&quiz.ID, &quiz.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("article %d: %w", quiz.ArticleID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to insert quiz: %w", err)
	}
	return nil
}

// SaveQuiz creates article when it has no id yet, then quiz, in a single
// transaction. Nothing is committed if either insert fails.
func (ps *PostgresStore) SaveQuiz(ctx context.Context, article *models.Article, quiz *models.Quiz) error {
	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	created := article.ID == 0
	if created {
		if err := createArticle(ctx, tx, article); err != nil {
			return err
		}
	}

	quiz.ArticleID = article.ID
	if err := createQuiz(ctx, tx, quiz); err != nil {
		if created {
			article.ID = 0
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if created {
			article.ID = 0
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	ps.log.Info("saved quiz",
		zap.Int64("article_id", article.ID),
		zap.Int64("quiz_id", quiz.ID),
		zap.Bool("article_created", created))
	return nil
}

// ListQuizzes returns every quiz with its article, newest id first.
func (ps *PostgresStore) ListQuizzes(ctx context.Context) ([]models.QuizSummary, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT q.id, a.id, a.title, a.url, q.created_at
		FROM quizzes q
		JOIN articles a ON a.id = q.article_id
		ORDER BY q.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quizzes: %w", err)
	}
	defer rows.Close()

	summaries := []models.QuizSummary{}
	for rows.Next() {
		var s models.QuizSummary
		if err := rows.Scan(&s.ID, &s.ArticleID, &s.ArticleTitle, &s.ArticleURL, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read quizzes: %w", err)
	}
	return summaries, nil
}

// GetQuiz returns a quiz and its article, or ErrNotFound.
func (ps *PostgresStore) GetQuiz(ctx context.Context, id int64) (*models.Quiz, *models.Article, error) {
	row := ps.pool.QueryRow(ctx, `
		SELECT `+articleColumns+`, q.id, q.quiz_data, q.related_topics, q.created_at
		FROM quizzes q
		JOIN articles a ON a.id = q.article_id
		WHERE q.id = $1`, id)

	var quizData, topics []byte
	quiz := &models.Quiz{}
	article, err := scanArticle(row, &quiz.ID, &quizData, &topics, &quiz.CreatedAt)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to query quiz %d: %w", id, err)
	}

	quiz.ArticleID = article.ID
	if err := decodeQuiz(quiz, quizData, topics); err != nil {
		return nil, nil, err
	}
	return quiz, article, nil
}

func (ps *PostgresStore) Close() {
	if ps.pool != nil {
		ps.pool.Close()
	}
}

func decodeQuiz(quiz *models.Quiz, quizData, topics []byte) error {
	if err := json.Unmarshal(quizData, &quiz.Data); err != nil {
		return fmt.Errorf("decoding quiz %d: %w", quiz.ID, err)
	}
	if err := json.Unmarshal(topics, &quiz.RelatedTopics); err != nil {
		return fmt.Errorf("decoding related topics of quiz %d: %w", quiz.ID, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// sanitizeUTF8 drops invalid byte sequences, which PostgreSQL rejects in text columns.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
