package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/pipeline"
	"github.com/ppiankov/reginduce/internal/worker"
)

var (
	modelPaths   []string
	outPath      string
	stripHTML    bool
	batchTimeout time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <documents>",
	Short: "Apply models to documents in parallel",
	Long: `Extract applies one or more models to every document in a file
(one document per line; blank lines and lines starting with # are skipped)
and writes one JSON object per document.

Example:
  reginduce extract notes.txt --model models/bp.yaml
  reginduce extract notes.txt --model models/bp.yaml --model models/pulse.yaml --tier2 --out matches.jsonl
  reginduce extract pages.txt --model models/bp.yaml --html --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.StringSliceVarP(&modelPaths, "model", "m", nil, "model file (repeatable)")
	flags.StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")
	flags.BoolVar(&stripHTML, "html", false, "reduce HTML documents to their visible text")
	flags.DurationVar(&batchTimeout, "batch-timeout", time.Hour, "total timeout for the batch")

	flags.Bool("tier2", false, "fall back to tier 2 when tier 1 finds nothing")
	flags.Duration("timeout", 0, "per-document extraction deadline (default from config)")
	flags.Int("workers", 0, "documents processed concurrently (default from config)")

	_ = viper.BindPFlag("extraction.use_tier2", flags.Lookup("tier2"))
	_ = viper.BindPFlag("extraction.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("concurrency.documents", flags.Lookup("workers"))
	_ = extractCmd.MarkFlagRequired("model")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	models, err := pipeline.LoadModels(modelPaths)
	if err != nil {
		return err
	}
	docs, err := worker.ReadDocumentsFromFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	results := p.ExtractDocuments(ctx, models, docs, stripHTML)

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" && outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := pipeline.NewRenderer(false).WriteResults(w, results); err != nil {
		return err
	}

	failures, matches := 0, 0
	for _, res := range results {
		if res.Error != nil {
			failures++
			continue
		}
		matches += len(res.Matches)
	}
	logger.Info("extraction finished",
		zap.Int("documents", len(results)),
		zap.Int("matches", matches),
		zap.Int("failures", failures),
		zap.Duration("elapsed", time.Since(start)))

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(results))
	}
	return nil
}
