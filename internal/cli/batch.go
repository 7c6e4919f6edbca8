package cli

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/truthcheck/truthcheck/internal/model"
	"github.com/truthcheck/truthcheck/internal/pipeline"
	"github.com/truthcheck/truthcheck/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	// noCache is defined in verify.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify multiple claims from a file in parallel",
	Long: `Batch verifies many claims concurrently:
- Read claims from the input file (one per line, # comments skipped)
- Verify claims in parallel with a configurable worker count
- Write one JSON verdict file per claim to the output directory
- Print a per-claim progress line and a final summary to stderr

Example:
  truthcheck batch claims.txt
  truthcheck batch claims.txt --concurrency 8 --output-dir ./verdicts
  truthcheck batch claims.txt --no-cache --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./truthcheck-verdicts", "output directory for verdict files")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the whole batch")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the verdict cache (force fresh verification)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	if noCache {
		cfg.Cache.Enabled = false
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  TruthCheck Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return eris.Wrap(err, "create output directory")
	}

	p := pipeline.NewPipeline(cfg)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)

	fmt.Fprintf(os.Stderr, "⚙️  Verifying claims...\n")
	fmt.Fprintf(os.Stderr, "\n")

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return eris.Wrap(err, "process claims")
	}

	labelCounts := make(map[model.VerdictLabel]int)
	failures := 0

	for _, result := range results {
		short := clipText(result.Claim, 60)

		if result.Error != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", short, result.Error)
			continue
		}

		path := filepath.Join(outputDir, claimSlug(result.Claim)+".json")
		if err := writeVerdictFile(path, result.Verdict); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", short, err)
			continue
		}

		labelCounts[result.Verdict.Label]++
		fmt.Fprintf(os.Stderr, "✓ %s → %s (%.2f)\n",
			short, strings.ToUpper(string(result.Verdict.Label)), result.Verdict.Confidence)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Claims:          %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  True:            %d\n", labelCounts[model.VerdictTrue])
	fmt.Fprintf(os.Stderr, "  False:           %d\n", labelCounts[model.VerdictFalse])
	fmt.Fprintf(os.Stderr, "  Neutral:         %d\n", labelCounts[model.VerdictNeutral])
	fmt.Fprintf(os.Stderr, "  Low confidence:  %d\n", labelCounts[model.VerdictLowConfidence])
	fmt.Fprintf(os.Stderr, "  Error:           %d\n", labelCounts[model.VerdictError])
	fmt.Fprintf(os.Stderr, "  Failures:        %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Output:          %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func writeVerdictFile(path string, verdict *model.Verdict) error {
	data, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal verdict")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return eris.Wrap(err, "write verdict file")
	}
	return nil
}

// claimSlug derives a stable, filesystem-safe name for a claim's verdict
// file. The hash suffix keeps claims distinct after the text is slugged.
func claimSlug(claim string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(claim) {
		if b.Len() >= 48 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "claim"
	}

	sum := sha256.Sum256([]byte(claim))
	return fmt.Sprintf("%s-%x", slug, sum[:4])
}
