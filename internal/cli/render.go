package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/truthcheck/truthcheck/internal/model"
)

const snippetRunes = 160

// renderJSON writes the verdict as indented JSON.
func renderJSON(w io.Writer, verdict *model.Verdict) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(verdict); err != nil {
		return eris.Wrap(err, "encode verdict")
	}
	return nil
}

// renderText writes the verdict in a human-readable layout.
func renderText(w io.Writer, verdict *model.Verdict, verbose bool) {
	fmt.Fprintf(w, "Claim:       %s\n", verdict.Claim)
	fmt.Fprintf(w, "Verdict:     %s", strings.ToUpper(string(verdict.Label)))
	if verdict.Cached {
		fmt.Fprintf(w, " (cached)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Confidence:  %.2f\n", verdict.Confidence)

	if len(verdict.Evidence) > 0 {
		fmt.Fprintf(w, "\nEvidence (%d items):\n", len(verdict.Evidence))
		for i, j := range verdict.Evidence {
			fmt.Fprintf(w, "  %d. %s  %s (score %.2f, weight %.2f)\n",
				i+1, j.Evidence.SourceDomain, j.Label, j.Score, j.Evidence.CredibilityWeight)
			fmt.Fprintf(w, "     %s\n", clipText(j.Evidence.Snippet, snippetRunes))
			fmt.Fprintf(w, "     %s\n", j.Evidence.SourceURL)
		}
	}

	if verdict.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", verdict.Explanation)
	}

	if verbose {
		fmt.Fprintf(w, "\nInvocation:  %s\n", verdict.InvocationID)
		fmt.Fprintf(w, "Elapsed:     %dms\n", verdict.ElapsedMS)
	}
}

// clipText collapses whitespace and trims to max runes for one-line display
func clipText(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
