package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/reginduce/internal/annotate"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/pipeline"
)

var (
	labels        []string
	modelDir      string
	modelFormat   string
	induceTimeout time.Duration
	showTrace     bool
)

// induceCmd represents the induce command
var induceCmd = &cobra.Command{
	Use:   "induce <examples>",
	Short: "Learn tiered patterns from annotated examples",
	Long: `Induce reads annotated examples and writes one model per label.

Examples are JSON lines (.jsonl) with byte-offset spans, or tagged lines
where values are wrapped inline:

  BP <bp>120/80</bp>, ratio <bp negative>3/4</bp>

Example:
  reginduce induce vitals.txt
  reginduce induce vitals.jsonl --label bp --holdout BP --out-dir ./models
  reginduce induce vitals.txt --engine backtracking --trace`,
	Args: cobra.ExactArgs(1),
	RunE: runInduce,
}

func init() {
	rootCmd.AddCommand(induceCmd)

	flags := induceCmd.Flags()
	flags.StringSliceVar(&labels, "label", nil, "labels to induce (default: every label in the examples)")
	flags.StringVar(&modelDir, "out-dir", "./models", "directory for model files")
	flags.StringVar(&modelFormat, "format", "yaml", "model file format: yaml or json")
	flags.DurationVar(&induceTimeout, "timeout", 30*time.Minute, "overall induction timeout")
	flags.BoolVar(&showTrace, "trace", false, "print every pattern version kept during induction (bypasses the model cache)")

	flags.StringSlice("holdout", nil, "words never generalized")
	flags.Bool("case-insensitive", false, "match case-insensitively")
	flags.Bool("allow-over-matches", false, "accept matches that contain the annotated span")
	flags.Bool("tier2", true, "induce the recall-biased second tier")
	flags.Bool("generalize-labeled", false, "merge labeled segments into alternations")
	flags.String("tier2-scorer", "", "tier 2 comparator: tp_fp_diff or f1 (default from config)")
	flags.Bool("no-cache", false, "disable the model cache")

	_ = viper.BindPFlag("induction.holdout_words", flags.Lookup("holdout"))
	_ = viper.BindPFlag("induction.case_insensitive", flags.Lookup("case-insensitive"))
	_ = viper.BindPFlag("induction.allow_over_matches", flags.Lookup("allow-over-matches"))
	_ = viper.BindPFlag("induction.enable_tier2", flags.Lookup("tier2"))
	_ = viper.BindPFlag("induction.generalize_labeled", flags.Lookup("generalize-labeled"))
	_ = viper.BindPFlag("induction.tier2_scorer", flags.Lookup("tier2-scorer"))
}

func runInduce(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), induceTimeout)
	defer cancel()

	examples, err := annotate.ReadFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if showTrace {
		cfg.Induction.Debug = true
	}

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	if showTrace {
		return runTrace(ctx, cmd, p, examples)
	}

	models, err := p.Induce(ctx, examples, labels...)
	if err != nil {
		return err
	}

	for _, m := range models {
		path := filepath.Join(modelDir, modelFileName(m.Label, modelFormat))
		if err := m.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d tier-1, %d tier-2 patterns → %s\n",
			m.Label, m.Tier(0).Len(), tierLen(m, 1), path)
		if len(m.Flagged) > 0 {
			fmt.Fprintf(os.Stderr, "  ⚠ review examples: %v\n", m.Flagged)
		}
	}
	return nil
}

func runTrace(ctx context.Context, cmd *cobra.Command, p *pipeline.Pipeline, examples []model.Example) error {
	if len(labels) == 0 {
		labels = model.Labels(examples)
	}
	out := cmd.OutOrStdout()
	for _, label := range labels {
		m, trace, err := p.InduceWithTrace(ctx, label, examples)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s (%s)\n", label, m.ID)
		for ti, tier := range trace.Tiers {
			for li, lineage := range tier {
				fmt.Fprintf(out, "tier %d, example pattern %d:\n", ti+1, li+1)
				for _, v := range lineage.Versions() {
					fmt.Fprintf(out, "  %-12s %s\n", v.Phase, v.Pattern.Render(m.CaseInsensitive))
				}
			}
		}
		path := filepath.Join(modelDir, modelFileName(label, modelFormat))
		if err := m.Save(path); err != nil {
			return err
		}
	}
	return nil
}

func modelFileName(label, format string) string {
	ext := ".yaml"
	if format == "json" {
		ext = ".json"
	}
	return sanitizeFilename(label) + ext
}

func tierLen(m *model.Model, i int) int {
	if t := m.Tier(i); t != nil {
		return t.Len()
	}
	return 0
}

// sanitizeFilename keeps a label usable as a file name
func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out = append(out, '_')
		case ' ':
			out = append(out, '-')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return "model"
	}
	if len(out) > 100 {
		out = out[:100]
	}
	return string(out)
}

