package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/CompassSecurity/codeleak/pkg/audit"
	"github.com/CompassSecurity/codeleak/pkg/baseline"
	"github.com/CompassSecurity/codeleak/pkg/scanner/plugins"
	"github.com/CompassSecurity/codeleak/pkg/scanner/transformers"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	auditBaselineFile string
	onlyRealSecrets   bool
	onlyFalsePositive bool
	recoverHash       string
	reportJSON        bool
)

func NewAuditCmd() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Reconcile a baseline against the files on disk",
		Long:  "Audit recovers the raw secret values behind a hash-only baseline by re-scanning the recorded files, and reports where the baseline and the files have drifted apart.",
		Run:   Audit,
	}

	auditCmd.Flags().StringVarP(&auditBaselineFile, "baseline", "b", "", "Baseline file to audit")
	if err := auditCmd.MarkFlagRequired("baseline"); err != nil {
		log.Error().Err(err).Msg("Unable to require baseline flag")
	}
	auditCmd.Flags().BoolVar(&onlyRealSecrets, "only-real", false, "Report only unverified and verified-true secrets")
	auditCmd.Flags().BoolVar(&onlyFalsePositive, "only-false", false, "Report only verified-false secrets")
	auditCmd.Flags().StringVar(&recoverHash, "recover", "", "Recover the raw value of the secret with this hash")
	auditCmd.Flags().BoolVar(&reportJSON, "report-json", false, "Print the report as JSON")
	auditCmd.MarkFlagsMutuallyExclusive("only-real", "only-false")

	return auditCmd
}

func Audit(cmd *cobra.Command, args []string) {
	b, err := baseline.Load(auditBaselineFile)
	if err != nil {
		log.Fatal().Err(err).Str("filename", auditBaselineFile).Msg("Not a valid baseline file")
	}

	registry, err := plugins.DefaultRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed building detector registry")
	}
	if detectorDrift(b.Plugins, registry.Descriptions()) {
		log.Warn().Msg("Baseline was generated with a different detector configuration, results may have drifted")
	}

	reconciler := audit.NewReconciler(registry, audit.NewLineGetterCache(transformers.DefaultRegistry()))
	ctx := context.Background()

	if recoverHash != "" {
		recoverSecret(ctx, reconciler, b, recoverHash)
		return
	}

	class := audit.AnySecret
	if onlyRealSecrets {
		class = audit.RealSecret
	}
	if onlyFalsePositive {
		class = audit.FalsePositive
	}

	entries, err := reconciler.GenerateReport(ctx, b, class)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed generating audit report")
	}

	if reportJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(map[string]any{"results": entries}); err != nil {
			log.Fatal().Err(err).Msg("Failed encoding audit report")
		}
		return
	}

	printReport(entries)
}

// detectorDrift compares the recorded detector configuration with the
// current one through the description fingerprints. A drifted setup still
// audits, but findings may no longer reconcile.
func detectorDrift(recorded, current []plugins.Description) bool {
	if len(recorded) != len(current) {
		return true
	}

	known := map[string]bool{}
	for _, d := range recorded {
		known[d.Fingerprint()] = true
	}
	for _, d := range current {
		if !known[d.Fingerprint()] {
			return true
		}
	}
	return false
}

func recoverSecret(ctx context.Context, reconciler *audit.Reconciler, b *baseline.Baseline, hash string) {
	for _, filename := range b.Filenames() {
		for _, secret := range b.Results[filename] {
			if secret.SecretHash != hash {
				continue
			}
			value, err := reconciler.RawSecretFromFile(ctx, secret)
			if err != nil {
				log.Fatal().Err(err).Str("filename", filename).Int("line", secret.LineNumber).Msg("Secret could not be reconciled")
			}
			fmt.Println(value)
			return
		}
	}
	log.Fatal().Str("hash", hash).Msg("No baseline record with this hash")
}

func printReport(entries []audit.ReportEntry) {
	realColor := color.New(color.FgRed, color.Bold)
	falseColor := color.New(color.FgGreen)

	for _, entry := range entries {
		categoryColor := realColor
		if entry.Category == types.VerifiedFalse.String() {
			categoryColor = falseColor
		}

		fmt.Printf("%s  %s (%s)\n", categoryColor.Sprint(entry.Category), entry.Filename, entry.Types[0])

		lineNumbers := make([]int, 0, len(entry.Lines))
		for n := range entry.Lines {
			lineNumbers = append(lineNumbers, n)
		}
		sort.Ints(lineNumbers)
		for _, n := range lineNumbers {
			fmt.Printf("  %d: %s\n", n, highlightValue(entry.Lines[n], entry.SecretValue))
		}
	}

	if len(entries) == 0 {
		fmt.Println("Nothing to report.")
	}
}

func highlightValue(line, value string) string {
	if value == "" {
		return line
	}
	highlight := color.New(color.FgYellow, color.Bold)
	return strings.ReplaceAll(line, value, highlight.Sprint(value))
}
