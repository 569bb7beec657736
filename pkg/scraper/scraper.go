package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultUserAgent = "WikiQuiz/1.0 (+https://github.com/xhad/wikiquiz)"

type ScraperConfig struct {
	UserAgent      string
	Timeout        time.Duration // per attempt
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RateLimit      float64 // requests per second
	Logger         *zap.Logger
}

// Scraper fetches raw article markup with bounded retries.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewWithConfig(config ScraperConfig) *Scraper {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 4 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Scraper{
		config:  config,
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:     log,
	}
}

func New() *Scraper {
	return NewWithConfig(ScraperConfig{})
}

func (s *Scraper) newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.InitialBackoff
	b.MaxInterval = s.config.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.config.MaxAttempts-1)), ctx)
}

// Fetch returns the markup of url. Network errors, timeouts and non-2xx
// responses are retried; once attempts are exhausted a *FetchError carrying
// the last failure is returned.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", &FetchError{URL: url, Err: err}
	}

	var (
		body     string
		attempts int
	)
	operation := func() error {
		attempts++
		var err error
		body, err = s.get(ctx, url)
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.log.Warn("fetch attempt failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, s.newBackOff(ctx), notify); err != nil {
		return "", &FetchError{URL: url, Attempts: attempts, Err: err}
	}

	s.log.Debug("fetched article", zap.String("url", url), zap.Int("attempts", attempts), zap.Int("bytes", len(body)))
	return body, nil
}

func (s *Scraper) get(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w", url, err)
	}
	return string(data), nil
}
