// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"practiceapp/internal/models"
	"practiceapp/internal/observability"
	"practiceapp/internal/services"
	contextutils "practiceapp/internal/utils"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ContentCommands returns the question bank maintenance commands
func ContentCommands(questionService *services.QuestionService, logger *observability.Logger) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Question bank maintenance commands",
		Long: `Question bank maintenance commands for the practice application.

Available commands:
  add-language - Register a practice language
  add-question - Add a question to the bank
  import       - Bulk import questions from a YAML file
  languages    - List registered languages`,
	}

	contentCmd.AddCommand(addLanguageCmd(questionService, logger))
	contentCmd.AddCommand(addQuestionCmd(questionService, logger))
	contentCmd.AddCommand(importQuestionsCmd(questionService, logger))
	contentCmd.AddCommand(listLanguagesCmd(questionService, logger))

	return contentCmd
}

func addLanguageCmd(questionService *services.QuestionService, logger *observability.Logger) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add-language [code]",
		Short: "Register a practice language",
		Long:  `Register a practice language by its code (e.g. fr). Re-running with an existing code updates the display name.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			code := strings.ToLower(strings.TrimSpace(args[0]))
			if code == "" {
				return contextutils.ErrorWithContextf("language code is required")
			}
			if name == "" {
				name = code
			}

			language, err := questionService.CreateLanguage(ctx, code, name)
			if err != nil {
				logger.Error(ctx, "Failed to create language", err, map[string]interface{}{"code": code})
				return contextutils.WrapErrorf(err, "failed to create language '%s'", code)
			}

			fmt.Printf("Language '%s' (%s) registered (ID: %d)\n", language.Name, language.Code, language.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name for the language")

	return cmd
}

func addQuestionCmd(questionService *services.QuestionService, logger *observability.Logger) *cobra.Command {
	var languageCode string
	var questionType string
	var prompt string
	var options []string
	var answer string
	var explanation string

	cmd := &cobra.Command{
		Use:   "add-question",
		Short: "Add a question to the bank",
		Long:  `Add a question to the bank for a registered language.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			if prompt == "" || answer == "" {
				return contextutils.ErrorWithContextf("both --prompt and --answer are required")
			}

			language, err := questionService.ResolveLanguage(ctx, languageCode)
			if err != nil {
				logger.Error(ctx, "Failed to resolve language", err, map[string]interface{}{"code": languageCode})
				return contextutils.WrapErrorf(err, "failed to resolve language '%s'", languageCode)
			}

			question, err := questionService.CreateQuestion(ctx, &models.Question{
				LanguageID:    language.ID,
				Type:          questionType,
				Prompt:        prompt,
				Options:       options,
				CorrectAnswer: answer,
				Explanation:   explanation,
			})
			if err != nil {
				logger.Error(ctx, "Failed to create question", err, map[string]interface{}{"language": languageCode})
				return contextutils.WrapErrorf(err, "failed to create question")
			}

			fmt.Printf("Question added (ID: %d, language: %s)\n", question.ID, language.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&languageCode, "language", "", "Language code the question belongs to (required)")
	cmd.Flags().StringVar(&questionType, "type", models.QuestionTypeMultipleChoice, "Question type (multiple_choice, fill_blank, translation)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Question prompt (required)")
	cmd.Flags().StringSliceVar(&options, "option", nil, "Answer option (repeatable, multiple_choice only)")
	cmd.Flags().StringVar(&answer, "answer", "", "Canonical correct answer (required)")
	cmd.Flags().StringVar(&explanation, "explanation", "", "Explanation shown after answering")
	_ = cmd.MarkFlagRequired("language")

	return cmd
}

// questionSeedFile is the YAML layout accepted by `content import`
type questionSeedFile struct {
	Language  string `yaml:"language"`
	Questions []struct {
		Type        string   `yaml:"type"`
		Prompt      string   `yaml:"prompt"`
		Options     []string `yaml:"options"`
		Answer      string   `yaml:"answer"`
		Explanation string   `yaml:"explanation"`
	} `yaml:"questions"`
}

func importQuestionsCmd(questionService *services.QuestionService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Bulk import questions from a YAML file",
		Long: `Bulk import questions from a YAML file of the form:

  language: it
  questions:
    - prompt: "How do you say 'hello'?"
      options: ["ciao", "grazie", "prego"]
      answer: "ciao"
      explanation: "Ciao is the informal greeting."`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to read seed file '%s'", args[0])
			}

			var seed questionSeedFile
			if err := yaml.Unmarshal(data, &seed); err != nil {
				return contextutils.WrapErrorf(err, "failed to parse seed file '%s'", args[0])
			}
			if seed.Language == "" {
				return contextutils.ErrorWithContextf("seed file must set 'language'")
			}

			language, err := questionService.ResolveLanguage(ctx, seed.Language)
			if err != nil {
				logger.Error(ctx, "Failed to resolve language", err, map[string]interface{}{"code": seed.Language})
				return contextutils.WrapErrorf(err, "failed to resolve language '%s'", seed.Language)
			}

			imported := 0
			for i, entry := range seed.Questions {
				if entry.Prompt == "" || entry.Answer == "" {
					return contextutils.ErrorWithContextf("question %d is missing a prompt or answer", i+1)
				}
				questionType := entry.Type
				if questionType == "" {
					questionType = models.QuestionTypeMultipleChoice
				}

				if _, err := questionService.CreateQuestion(ctx, &models.Question{
					LanguageID:    language.ID,
					Type:          questionType,
					Prompt:        entry.Prompt,
					Options:       entry.Options,
					CorrectAnswer: entry.Answer,
					Explanation:   entry.Explanation,
				}); err != nil {
					logger.Error(ctx, "Failed to import question", err, map[string]interface{}{
						"language": seed.Language,
						"index":    i,
					})
					return contextutils.WrapErrorf(err, "failed to import question %d", i+1)
				}
				imported++
			}

			fmt.Printf("Imported %d questions for language '%s'\n", imported, language.Code)
			return nil
		},
	}
}

func listLanguagesCmd(questionService *services.QuestionService, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List registered languages",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			languages, err := questionService.ListLanguages(ctx)
			if err != nil {
				logger.Error(ctx, "Failed to list languages", err, nil)
				return contextutils.WrapErrorf(err, "failed to list languages")
			}

			if len(languages) == 0 {
				fmt.Println("No languages registered")
				return nil
			}

			fmt.Printf("%-5s %-10s %-30s\n", "ID", "Code", "Name")
			for _, language := range languages {
				fmt.Printf("%-5d %-10s %-30s\n", language.ID, language.Code, language.Name)
			}
			return nil
		},
	}
}
