package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-wedding-backend/internal/domain"
)

var askFlags struct {
	question string
	name     string
}

var questionsCmd = &cobra.Command{
	Use:     "questions",
	Aliases: []string{"qna"},
	Short:   "Ask the couple a question or read the answers",
}

var questionsAskCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question; it appears once the couple approves it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := domain.QuestionInput{Question: askFlags.question, AskerName: askFlags.name}.Normalize()
		if err := in.Validate(); err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		var q domain.Question
		if err := newStore().Insert(ctx, domain.TableQuestions, in, uuid.NewString(), &q); err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), q)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Question %s sent. It will show up after approval.\n", q.ID)
		return nil
	},
}

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approved questions and their answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := withTimeout(cmd)
		defer cancel()
		var items []domain.Question
		if err := newStore().Query(ctx, domain.TableQuestions, &items); err != nil {
			return err
		}
		return printQuestions(cmd.OutOrStdout(), items)
	},
}

func init() {
	f := questionsAskCmd.Flags()
	f.StringVar(&askFlags.question, "question", "", "your question")
	f.StringVar(&askFlags.name, "name", "", "your name")
	questionsCmd.AddCommand(questionsAskCmd, questionsListCmd)
}
