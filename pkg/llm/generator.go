package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"
	"github.com/xhad/wikiquiz/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GeneratorConfig represents the configuration for a quiz generator.
type GeneratorConfig struct {
	Provider       string // "ollama" or "openai" (any OpenAI compatible API, e.g. Groq)
	Model          string
	BaseURL        string
	APIKey         string
	Temperature    float64
	MaxTokens      int
	MaxTextChars   int
	SystemTemplate string
	QuizTemplate   string
	TopicsTemplate string
	Logger         *zap.Logger
}

// Generator turns scraped article content into a quiz and related topics.
type Generator struct {
	config       GeneratorConfig
	llm          llms.Model
	quizPrompt   prompts.PromptTemplate
	topicsPrompt prompts.PromptTemplate
	log          *zap.Logger
}

func applyDefaults(config GeneratorConfig) (GeneratorConfig, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.MaxTextChars == 0 {
		config.MaxTextChars = 12000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = DefaultSystemTemplate
	}
	if config.QuizTemplate == "" {
		config.QuizTemplate = DefaultQuizTemplate
	}
	if config.TopicsTemplate == "" {
		config.TopicsTemplate = DefaultTopicsTemplate
	}
	if config.Provider == "ollama" && config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return config, nil
}

// NewWithConfig creates a Generator backed by the configured provider.
func NewWithConfig(config GeneratorConfig) (*Generator, error) {
	config, err := applyDefaults(config)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch config.Provider {
	case "ollama":
		model, err = ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
	case "openai":
		opts := []openai.Option{openai.WithModel(config.Model), openai.WithToken(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(model, config)
}

// NewWithModel creates a Generator around an existing model.
func NewWithModel(model llms.Model, config GeneratorConfig) (*Generator, error) {
	config, err := applyDefaults(config)
	if err != nil {
		return nil, err
	}

	return &Generator{
		config:       config,
		llm:          model,
		quizPrompt:   prompts.NewPromptTemplate(config.QuizTemplate, promptInputs),
		topicsPrompt: prompts.NewPromptTemplate(config.TopicsTemplate, promptInputs),
		log:          config.Logger,
	}, nil
}

// Generate asks the backend for a quiz and for related topics. Both requests
// run concurrently and both must succeed.
func (g *Generator) Generate(ctx context.Context, content *models.ScrapedContent) (*models.Generation, error) {
	values := g.promptValues(content)

	var quizReply, topicsReply string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		quizReply, err = g.complete(groupCtx, StageQuiz, g.quizPrompt, values)
		return err
	})
	group.Go(func() error {
		var err error
		topicsReply, err = g.complete(groupCtx, StageTopics, g.topicsPrompt, values)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	quiz, err := ParseQuiz(quizReply)
	if err != nil {
		return nil, &GenerationError{Stage: StageQuiz, Err: err}
	}
	topics, err := ParseTopics(topicsReply)
	if err != nil {
		return nil, &GenerationError{Stage: StageTopics, Err: err}
	}

	g.log.Debug("generated quiz",
		zap.String("url", content.URL),
		zap.Int("questions", len(quiz.Questions)),
		zap.Int("topics", len(topics)))

	return &models.Generation{Quiz: *quiz, RelatedTopics: topics}, nil
}

func (g *Generator) complete(ctx context.Context, stage string, tmpl prompts.PromptTemplate, values map[string]any) (string, error) {
	prompt, err := tmpl.Format(values)
	if err != nil {
		return "", &GenerationError{Stage: stage, Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, g.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	response, err := g.llm.GenerateContent(ctx, content,
		llms.WithTemperature(g.config.Temperature),
		llms.WithMaxTokens(g.config.MaxTokens))
	if err != nil {
		return "", &GenerationError{Stage: stage, Err: err}
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", &GenerationError{Stage: stage, Err: errors.New("empty response from model")}
	}

	return response.Choices[0].Content, nil
}

func (g *Generator) promptValues(content *models.ScrapedContent) map[string]any {
	return map[string]any{
		"title":    content.Title,
		"summary":  content.Summary,
		"sections": formatSections(content.Sections),
		"entities": formatEntities(content.Entities),
		"text":     truncate(content.Text, g.config.MaxTextChars),
	}
}

func formatSections(sections []models.Section) string {
	var b strings.Builder
	for _, section := range sections {
		fmt.Fprintf(&b, "## %s\n%s\n\n", section.Title, section.Content)
	}
	return strings.TrimSpace(b.String())
}

func formatEntities(entities models.EntitySummary) string {
	return fmt.Sprintf("People: %s\nOrganizations: %s\nLocations: %s",
		strings.Join(entities.People, ", "),
		strings.Join(entities.Organizations, ", "),
		strings.Join(entities.Locations, ", "))
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
