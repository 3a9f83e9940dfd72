package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"quiz-forge/internal/app"
	"quiz-forge/internal/config"
	"quiz-forge/internal/domain"
	"quiz-forge/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type generateOptions struct {
	file     string
	topic    string
	count    int
	parallel bool
	fast     bool
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "quizgen",
		Short:         "Generate multiple-choice questions from documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCommand(), newModelsCommand())
	return root
}

// setup loads configuration and initializes the logger. Logs go to stderr so
// stdout only carries command output.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return nil, nil, err
	}
	return cfg, logger.Get(), nil
}

func newGenerateCommand() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate questions and print them as a JSON array",
		Long: `Generate multiple-choice questions about a text or PDF file.

The first option of every question is the correct answer. Questions the
configured models cannot produce are filled in from the document itself.

Examples:
  quizgen generate --file notes.pdf --topic Biology --count 10
  quizgen generate --file chapter.txt --parallel
  cat notes.txt | quizgen generate --file -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if opts.parallel {
				cfg.Generation.Parallel = true
			}

			ctx := cmd.Context()
			pipeline, err := app.BuildPipeline(ctx, cfg, log)
			if err != nil {
				return err
			}
			generator := pipeline.Standard
			if opts.fast {
				generator = pipeline.Fast
			}

			content, err := readContent(ctx, opts.file, cmd.InOrStdin(), app.NewExtractor(cfg, log))
			if err != nil {
				return err
			}
			return runGenerate(ctx, generator, content, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "text or PDF file to generate from, - for stdin")
	cmd.Flags().StringVarP(&opts.topic, "topic", "t", "", "topic used to phrase the prompt")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "number of questions, derived from the document length when 0")
	cmd.Flags().BoolVar(&opts.parallel, "parallel", false, "dispatch batches concurrently")
	cmd.Flags().BoolVar(&opts.fast, "fast", false, "use the low-latency profile")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readContent(ctx context.Context, path string, stdin io.Reader, extractor domain.TextExtractor) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	kind := domain.SourceText
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		kind = domain.SourcePDF
	}
	return extractor.ExtractText(ctx, kind, data)
}

func runGenerate(ctx context.Context, generator domain.QuestionGenerator, content string, opts generateOptions, out io.Writer) error {
	if opts.count < 0 || opts.count > 200 {
		return fmt.Errorf("--count must be between 0 and 200, got %d", opts.count)
	}

	questions, err := generator.Generate(ctx, domain.GenerationRequest{
		Content:        content,
		Topic:          opts.topic,
		RequestedCount: opts.count,
	})
	if err != nil {
		return err
	}
	if questions == nil {
		questions = []domain.Question{}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(questions)
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models installed on the configured local servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			pipeline, err := app.BuildPipeline(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return listModels(cmd.Context(), pipeline.Listers, cmd.OutOrStdout())
		},
	}
}

func listModels(ctx context.Context, listers map[string]domain.ModelLister, out io.Writer) error {
	if len(listers) == 0 {
		return fmt.Errorf("no local model server is configured")
	}

	names := make([]string, 0, len(listers))
	for name := range listers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		models, err := listers[name].ListModels(ctx)
		if err != nil {
			fmt.Fprintf(out, "%s: unavailable (%v)\n", name, err)
			continue
		}
		fmt.Fprintf(out, "%s:\n", name)
		for _, m := range models {
			fmt.Fprintf(out, "  %s\n", m)
		}
	}
	return nil
}
