package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/wikiquiz/internal/models"
	"github.com/xhad/wikiquiz/pkg/quiz"
)

var stageLabels = map[string]string{
	quiz.StageValidating: "Validating URL",
	quiz.StageCacheHit:   "Found stored quiz",
	quiz.StageFetching:   "Fetching article",
	quiz.StageExtracting: "Extracting sections",
	quiz.StageEntities:   "Finding entities",
	quiz.StageGenerating: "Generating quiz",
	quiz.StageSaving:     "Saving quiz",
	quiz.StageDone:       "Done",
}

func newGenerateCommand(opts *options) *cobra.Command {
	var showAnswers bool

	cmd := &cobra.Command{
		Use:   "generate <wikipedia-url>",
		Short: "Generate (or load) the quiz for a Wikipedia article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			color.Blue("\nQuiz for %s\n", args[0])
			spinner := getSpinner(stageLabels[quiz.StageValidating])
			stopSpinner := spin(spinner)

			result, err := a.service.GenerateQuizWithProgress(cmd.Context(), args[0], func(stage string) {
				spinner.Describe(color.CyanString(stageLabels[stage]))
			})
			stopSpinner()
			fmt.Print("\n")
			if err != nil {
				return err
			}

			if result.Cached {
				color.Green("✓ Loaded stored quiz #%d\n", result.QuizID)
			} else {
				color.Green("✓ Generated quiz #%d\n", result.QuizID)
			}
			printQuiz(os.Stdout, result.Article, result.Quiz, result.RelatedTopics, showAnswers)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showAnswers, "answers", true, "Show correct answers and explanations")
	return cmd
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// spin keeps the spinner moving until the returned func is called.
func spin(bar *progressbar.ProgressBar) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
		_ = bar.Finish()
	}
}

func printQuiz(w io.Writer, article models.ArticleView, data models.QuizData, topics []string, showAnswers bool) {
	title := color.New(color.FgCyan, color.Bold)
	question := color.New(color.Bold)
	answer := color.New(color.FgGreen)
	muted := color.New(color.Faint)

	title.Fprintf(w, "\n%s\n", article.Title)
	muted.Fprintf(w, "%s\n", article.URL)
	if article.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", article.Summary)
	}

	for i, q := range data.Questions {
		question.Fprintf(w, "\n%d. %s", i+1, q.Question)
		if q.Difficulty != "" {
			muted.Fprintf(w, " [%s]", q.Difficulty)
		}
		fmt.Fprintln(w)
		for j, option := range q.Options {
			label := string(rune('A' + j))
			if showAnswers && strings.EqualFold(strings.TrimSpace(option.Text), strings.TrimSpace(q.CorrectAnswer)) {
				answer.Fprintf(w, "   %s) %s ✓\n", label, option.Text)
				continue
			}
			fmt.Fprintf(w, "   %s) %s\n", label, option.Text)
		}
		if showAnswers && q.Explanation != "" {
			muted.Fprintf(w, "   %s\n", q.Explanation)
		}
	}

	if len(topics) > 0 {
		title.Fprintf(w, "\nRelated topics\n")
		for _, topic := range topics {
			fmt.Fprintf(w, " - %s\n", topic)
		}
	}
}
