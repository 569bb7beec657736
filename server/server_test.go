package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/wikiquiz/internal/models"
	"github.com/xhad/wikiquiz/pkg/llm"
	"github.com/xhad/wikiquiz/pkg/quiz"
	"github.com/xhad/wikiquiz/pkg/scraper"
	"github.com/xhad/wikiquiz/pkg/store"
	"github.com/xhad/wikiquiz/server"
)

const exampleURL = "https://en.wikipedia.org/wiki/Example"

const examplePage = `<html><body><h1 id="firstHeading">Example</h1>
<div id="mw-content-text"><p>An example is a representative of a group.</p>
<h2>History</h2><p>Examples have been used since antiquity.</p></div></body></html>`

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return examplePage, nil
}

type stubGenerator struct {
	err error
}

func (g *stubGenerator) Generate(ctx context.Context, content *models.ScrapedContent) (*models.Generation, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &models.Generation{
		Quiz: models.QuizData{Questions: []models.Question{{
			Question:      "What is an example?",
			Options:       []models.Option{{Text: "A representative"}, {Text: "A fruit"}},
			CorrectAnswer: "A representative",
		}}},
		RelatedTopics: []string{"Sample"},
	}, nil
}

func newTestServer(t *testing.T, fetcher *stubFetcher, generator *stubGenerator) *httptest.Server {
	t.Helper()
	svc := quiz.NewService(store.NewMemory(), fetcher, generator)
	srv := httptest.NewServer(server.New(svc, server.Config{FrontendOrigin: "http://localhost:5173"}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postGenerate(t *testing.T, srv *httptest.Server, url string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"url": url})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/generate-quiz", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, &stubGenerator{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestGenerateQuizEndpoint(t *testing.T) {
	fetcher := &stubFetcher{}
	srv := newTestServer(t, fetcher, &stubGenerator{})

	resp := postGenerate(t, srv, exampleURL)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	first := decode[map[string]any](t, resp)
	assert.Equal(t, false, first["cached"])
	article := first["article"].(map[string]any)
	assert.Equal(t, "Example", article["title"])
	assert.NotContains(t, article, "raw_html")
	questions := first["quiz"].(map[string]any)["questions"].([]any)
	assert.Len(t, questions, 1)
	assert.Equal(t, []any{"Sample"}, first["related_topics"])

	second := decode[map[string]any](t, postGenerate(t, srv, exampleURL))
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["quiz_id"], second["quiz_id"])
	assert.Equal(t, 1, fetcher.calls)
}

func TestGenerateQuizEndpointErrors(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		fetchErr  error
		genErr    error
		status    int
		substring string
	}{
		{
			name:      "not wikipedia",
			url:       "https://example.com/wiki/Example",
			status:    http.StatusBadRequest,
			substring: "invalid article URL",
		},
		{
			name:   "empty url",
			url:    "",
			status: http.StatusBadRequest,
		},
		{
			name:      "fetch failure",
			url:       exampleURL,
			fetchErr:  &scraper.FetchError{URL: exampleURL, Attempts: 3, Err: errors.New("unexpected status 503")},
			status:    http.StatusBadGateway,
			substring: "503",
		},
		{
			name:      "generation failure",
			url:       exampleURL,
			genErr:    &llm.GenerationError{Stage: llm.StageQuiz, Err: errors.New("backend unavailable")},
			status:    http.StatusBadGateway,
			substring: "backend unavailable",
		},
		{
			name:      "fetch timed out",
			url:       exampleURL,
			fetchErr:  &scraper.FetchError{URL: exampleURL, Attempts: 1, Err: context.DeadlineExceeded},
			status:    http.StatusGatewayTimeout,
			substring: "timed out",
		},
		{
			name:      "generation timed out",
			url:       exampleURL,
			genErr:    &llm.GenerationError{Stage: llm.StageTopics, Err: context.DeadlineExceeded},
			status:    http.StatusGatewayTimeout,
			substring: "timed out",
		},
		{
			name:      "client went away",
			url:       exampleURL,
			fetchErr:  &scraper.FetchError{URL: exampleURL, Attempts: 1, Err: context.Canceled},
			status:    499,
			substring: "cancelled",
		},
		{
			name:      "unexpected failure",
			url:       exampleURL,
			genErr:    errors.New("boom"),
			status:    http.StatusInternalServerError,
			substring: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubFetcher{err: tt.fetchErr}, &stubGenerator{err: tt.genErr})

			resp := postGenerate(t, srv, tt.url)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[map[string]string](t, resp)
			assert.NotEmpty(t, body["detail"])
			assert.Contains(t, body["detail"], tt.substring)
		})
	}
}

func TestGenerateQuizEndpointMalformedBody(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, &stubGenerator{})

	resp, err := http.Post(srv.URL+"/generate-quiz", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuizHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, &stubGenerator{})

	resp, err := http.Get(srv.URL + "/quizzes")
	require.NoError(t, err)
	assert.Empty(t, decode[[]map[string]any](t, resp))
	resp.Body.Close()

	generated := decode[map[string]any](t, postGenerate(t, srv, exampleURL))
	quizID := int64(generated["quiz_id"].(float64))

	resp, err = http.Get(srv.URL + "/quizzes")
	require.NoError(t, err)
	summaries := decode[[]map[string]any](t, resp)
	resp.Body.Close()
	require.Len(t, summaries, 1)
	assert.Equal(t, float64(quizID), summaries[0]["id"])
	assert.Equal(t, "Example", summaries[0]["article_title"])
	assert.Equal(t, exampleURL, summaries[0]["article_url"])

	for _, path := range []string{"/quizzes/", "/generate-quiz/"} {
		resp, err = http.Get(srv.URL + path + strconv.FormatInt(quizID, 10))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		detail := decode[map[string]any](t, resp)
		resp.Body.Close()
		assert.Equal(t, float64(quizID), detail["id"])
		assert.Equal(t, "Example", detail["article"].(map[string]any)["title"])
	}

	resp, err = http.Get(srv.URL + "/quizzes/9999")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/quizzes/abc")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, &stubGenerator{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/generate-quiz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketStreamsProgress(t *testing.T) {
	srv := newTestServer(t, &stubFetcher{}, &stubGenerator{})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(server.Message{Type: server.MessageGenerate, Content: exampleURL}))

	var stages []string
	for {
		var msg server.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == server.MessageProgress {
			stages = append(stages, msg.Content)
			continue
		}
		require.Equal(t, server.MessageResult, msg.Type)
		result := msg.Data.(map[string]any)
		assert.Equal(t, "Example", result["article"].(map[string]any)["title"])
		break
	}
	assert.Equal(t, quiz.StageValidating, stages[0])
	assert.Equal(t, quiz.StageDone, stages[len(stages)-1])
	assert.Contains(t, stages, quiz.StageGenerating)

	require.NoError(t, conn.WriteJSON(server.Message{Type: server.MessageGenerate, Content: "https://example.com/"}))
	for {
		var msg server.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == server.MessageError {
			assert.Equal(t, http.StatusBadRequest, msg.Status)
			assert.Contains(t, msg.Content, "invalid article URL")
			break
		}
	}
}
