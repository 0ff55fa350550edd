package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/reginduce/internal/annotate"
	"github.com/ppiankov/reginduce/internal/evaluate"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/pipeline"
)

var (
	evalLabel      string
	evalFolds      int
	evalSeed       uint64
	evalClassifier string
	evalJSON       string
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <examples>",
	Short: "Cross-validate a classifier on annotated examples",
	Long: `Evaluate splits the examples into k folds, fits a fresh classifier on
k-1 of them and predicts on the rest, and reports precision, recall and F1
per fold and overall.

Example:
  reginduce evaluate vitals.txt --label bp
  reginduce evaluate vitals.jsonl --label bp --folds 10 --seed 42 --json report.json
  OPENAI_API_KEY=sk-... reginduce evaluate vitals.txt --label bp --classifier remote`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	flags := evaluateCmd.Flags()
	flags.StringVar(&evalLabel, "label", "", "label to evaluate (default: first label in the examples)")
	flags.IntVar(&evalFolds, "folds", 5, "number of folds")
	flags.Uint64Var(&evalSeed, "seed", 1, "shuffle seed")
	flags.StringVar(&evalClassifier, "classifier", "regex", "classifier: regex or remote")
	flags.StringVar(&evalJSON, "json", "", "also write the report as JSON to this path")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	examples, err := annotate.ReadFile(args[0])
	if err != nil {
		return err
	}

	label := evalLabel
	if label == "" {
		found := model.Labels(examples)
		if len(found) == 0 {
			return fmt.Errorf("%w: examples carry no positive labels", model.ErrInvalidConfiguration)
		}
		label = found[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	report, err := p.Evaluate(cmd.Context(), evalClassifier, label, examples, evalFolds, evalSeed)
	if err != nil {
		return err
	}

	printReport(cmd, report)

	if evalJSON != "" {
		if err := pipeline.NewRenderer(true).RenderJSON(report, evalJSON); err != nil {
			return err
		}
	}
	return nil
}

func printReport(cmd *cobra.Command, report *evaluate.Report) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "label %s, classifier %s\n\n", report.Label, report.Classifier)
	fmt.Fprintln(w, "fold\ttrain\ttest\ttp\tfp\tfn\tprecision\trecall\tf1")

	row := func(name string, r evaluate.Result) {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.3f\t%.3f\t%.3f\n",
			name, r.Train, r.Test, r.Counts.TP, r.Counts.FP, r.Counts.FN, r.Precision, r.Recall, r.F1)
	}
	for _, f := range report.Folds {
		name := fmt.Sprint(f.Fold)
		if f.Skipped {
			name += "*"
		}
		row(name, f)
	}
	row("all", report.Overall)
	_ = w.Flush()
}
