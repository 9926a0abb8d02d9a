// Package main provides the translate CLI: extract a PDF, run the
// translation pipeline, and write the result to a local file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/extract"
	"github.com/lingodoc/translation-engine/internal/llm"
	"github.com/lingodoc/translation-engine/internal/observability"
	"github.com/lingodoc/translation-engine/internal/pipeline"
	"github.com/lingodoc/translation-engine/internal/progress"
)

var (
	outputPath  string
	sourceLang  string
	targetLang  string
	model       string
	concurrency int
	deadline    time.Duration
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "translate <pdf-file>",
	Short: "Translate a PDF document through a remote language model",
	Long: `Extracts text from a PDF, translates it chunk by chunk with bounded
concurrency under a wall-clock deadline, and writes the reassembled
translation to a text file. Units that fail all retry attempts are omitted
from the output and reported, so a partly translated document is still
produced.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: <input>-<lang>.txt)")
	rootCmd.Flags().StringVar(&sourceLang, "from", "auto", "source language")
	rootCmd.Flags().StringVar(&targetLang, "to", "en", "target language")
	rootCmd.Flags().StringVar(&model, "model", "", "model override")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 3, "concurrent translation calls")
	rootCmd.Flags().DurationVar(&deadline, "deadline", 290*time.Second, "wall-clock budget for the run")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	pdfPath := args[0]

	_ = godotenv.Load()
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY environment variable not set")
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{Level: level, Format: "console", Output: os.Stderr})

	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
		outputPath = fmt.Sprintf("%s-%s.txt", base, targetLang)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	doc, err := extract.NewPDFExtractor(logger).Extract(ctx, pdfPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Extracted %d pages from %s\n", doc.PageCount, pdfPath)

	client := llm.NewClient(llm.Options{APIKey: apiKey, Model: model})
	writer := &fileRenderer{path: outputPath}

	p := pipeline.New(client, writer, logger, pipeline.Config{
		ConcurrencyLimit: concurrency,
		RunDeadline:      deadline,
		SourceLang:       sourceLang,
		TargetLang:       targetLang,
	})

	emitter := progress.NewEmitter(logger, 0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		renderEvents(emitter)
	}()

	_, runErr := p.Run(ctx, doc, emitter)
	emitter.Close()
	<-done

	if runErr != nil {
		return runErr
	}

	color.Green("Translation written to %s", outputPath)
	return nil
}

// renderEvents drives the terminal progress display from the event stream.
func renderEvents(emitter *progress.Emitter) {
	var bar *progressbar.ProgressBar
	warn := color.New(color.FgYellow)

	for event := range emitter.Events() {
		switch event.Type {
		case domain.EventInit:
			data := event.Data.(domain.InitData)
			bar = progressbar.NewOptions(data.TotalChunks,
				progressbar.OptionSetDescription("translating"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprint(os.Stderr, "\n")
				}),
			)

		case domain.EventProgress:
			data := event.Data.(domain.ProgressData)
			if bar != nil {
				_ = bar.Set(data.CurrentChunk)
			}

		case domain.EventChunk:
			data := event.Data.(domain.ChunkData)
			if !data.OK {
				warn.Fprintf(os.Stderr, "\nchunk %d failed after %d attempts\n", data.Index, data.Attempts)
			}

		case domain.EventMetrics:
			data := event.Data.(domain.MetricsData)
			fmt.Fprintf(os.Stderr, "\n%d translated, %d failed, avg %dms per chunk\n",
				data.CompletedChunks, data.FailedChunks, data.AverageLatencyMs)

		case domain.EventCompleted:
			data := event.Data.(domain.CompletedData)
			if data.Partial {
				warn.Fprintf(os.Stderr, "partial result: %d failed chunk(s) omitted\n", len(data.FailedChunks))
			}

		case domain.EventError:
			data := event.Data.(domain.ErrorData)
			color.New(color.FgRed).Fprintf(os.Stderr, "error: %s\n", data.Message)
		}
	}
}

// fileRenderer writes the assembled paragraphs straight to the output path.
type fileRenderer struct {
	path string
}

func (r *fileRenderer) Render(_ context.Context, paragraphs []string) (string, error) {
	body := strings.Join(paragraphs, "\n\n") + "\n"
	if err := os.WriteFile(r.path, []byte(body), 0o644); err != nil {
		return "", err
	}
	return r.path, nil
}
