package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/wikiquiz/internal/models"
	"github.com/xhad/wikiquiz/pkg/store"
)

func newHistoryCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List stored quizzes, newest first",
		Args:  cobra.NoArgs,
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

			summaries, err := a.service.ListQuizzes(cmd.Context())
			if err != nil {
				return err
			}
			printHistory(os.Stdout, summaries)
			return nil
		},
	}
}

func newShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <quiz-id>",
		Short: "Show a stored quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("quiz id must be a positive integer, got %q", args[0])
			}

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			detail, err := a.service.GetQuiz(cmd.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no quiz with id %d", id)
			}
			if err != nil {
				return err
			}
			printQuiz(os.Stdout, detail.Article, detail.Quiz, detail.RelatedTopics, true)
			return nil
		},
	}
}

func printHistory(w io.Writer, summaries []models.QuizSummary) {
	if len(summaries) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No quizzes yet.")
		return
	}
	id := color.New(color.FgCyan)
	for _, s := range summaries {
		id.Fprintf(w, "#%-5d", s.ID)
		fmt.Fprintf(w, " %s  %s  %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04"), s.ArticleTitle, s.ArticleURL)
	}
}
