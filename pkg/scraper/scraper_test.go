package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() ScraperConfig {
	return ScraperConfig{
		Timeout:        200 * time.Millisecond,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		RateLimit:      1000,
	}
}

func TestScraperConfigDefaults(t *testing.T) {
	s := New()

	assert.Equal(t, DefaultUserAgent, s.config.UserAgent)
	assert.Equal(t, 10*time.Second, s.config.Timeout)
	assert.Equal(t, 3, s.config.MaxAttempts)
	assert.Equal(t, time.Second, s.config.InitialBackoff)
	assert.Equal(t, 4*time.Second, s.config.MaxBackoff)
}

func TestBackoffSchedule(t *testing.T) {
	s := NewWithConfig(ScraperConfig{})
	b := s.newBackOff(context.Background())
	b.Reset()

	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, time.Duration(-1), b.NextBackOff(), "no more than 3 attempts in total")
}

func TestFetchWithMockServer(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Test Page</title></head></html>`))
	}))
	defer server.Close()

	s := NewWithConfig(testConfig())

	body, err := s.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "Test Page")
	assert.Equal(t, DefaultUserAgent, userAgent)
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("third time lucky"))
	}))
	defer server.Close()

	s := NewWithConfig(testConfig())

	body, err := s.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := NewWithConfig(testConfig())

	_, err := s.Fetch(context.Background(), server.URL)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, server.URL, fetchErr.URL)
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Contains(t, fetchErr.Error(), "404")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchTimeoutIsRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	config := testConfig()
	config.Timeout = 50 * time.Millisecond
	s := NewWithConfig(config)

	body, err := s.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewWithConfig(testConfig())

	_, err := s.Fetch(ctx, server.URL)
	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
}
