package cmd

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/CompassSecurity/codeleak/pkg/baseline"
	"github.com/CompassSecurity/codeleak/pkg/config"
	"github.com/CompassSecurity/codeleak/pkg/scan/result"
	"github.com/CompassSecurity/codeleak/pkg/scanner/engine"
	"github.com/CompassSecurity/codeleak/pkg/scanner/filters"
	"github.com/CompassSecurity/codeleak/pkg/scanner/plugins"
	"github.com/CompassSecurity/codeleak/pkg/scanner/transformers"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	scanString      string
	scanDiffFile    string
	onlyAllowlisted bool
	baselineOutFile string
	verifySecrets   bool
	maxScanWorkers  int
	minLineLength   int
)

func NewScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [paths]",
		Short: "Scan files, a diff or a literal string for secrets",
		Run:   Scan,
	}

	scanCmd.Flags().StringVarP(&scanString, "string", "s", "", "Scan a literal string instead of files")
	scanCmd.Flags().StringVarP(&scanDiffFile, "diff", "d", "", "Scan the added lines of a unified diff file")
	scanCmd.Flags().BoolVar(&onlyAllowlisted, "only-allowlisted", false, "Only scan lines muted with an allowlist pragma")
	scanCmd.Flags().StringVarP(&baselineOutFile, "baseline", "b", "", "Write the findings to a baseline file")
	scanCmd.Flags().BoolVar(&verifySecrets, "verify", false, "Verify candidates against live services where supported")
	scanCmd.Flags().IntVar(&maxScanWorkers, "workers", 4, "Number of files scanned concurrently")
	scanCmd.Flags().IntVar(&minLineLength, "min-line-length", 5, "Skip lines shorter than this many characters")

	return scanCmd
}

func Scan(cmd *cobra.Command, args []string) {
	opts := config.DefaultScanOptions()
	opts.Verify = verifySecrets
	opts.MaxScanWorkers = maxScanWorkers
	opts.MinLineLength = minLineLength
	opts.BaselineFile = baselineOutFile
	if err := opts.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid scan options")
	}

	scanner := buildScanner(opts)
	ctx := context.Background()

	var (
		secrets []*types.PotentialSecret
		err     error
	)
	switch {
	case scanString != "":
		secrets = scanner.ScanString(ctx, scanString)
	case scanDiffFile != "":
		diff, readErr := os.ReadFile(scanDiffFile)
		if readErr != nil {
			log.Fatal().Err(readErr).Str("filename", scanDiffFile).Msg("Failed reading diff file")
		}
		log.Debug().Str("diff", engine.FormatDiffStats(string(diff))).Msg("Parsed diff")
		if onlyAllowlisted {
			secrets, err = scanner.ScanAllowlistedDiff(ctx, string(diff))
		} else {
			secrets, err = scanner.ScanDiff(ctx, string(diff))
		}
	default:
		files := filesToScan(args)
		log.Debug().Int("count", len(files)).Msg("Collected files to scan")
		if onlyAllowlisted {
			for _, file := range files {
				found, scanErr := scanner.ScanAllowlistedFile(ctx, file)
				if scanErr != nil {
					err = scanErr
					break
				}
				secrets = append(secrets, found...)
			}
		} else {
			secrets, err = scanner.ScanFiles(ctx, files)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Scan failed")
	}

	result.ReportSecrets(secrets)
	log.Info().Int("count", len(secrets)).Msg("Scan finished")

	if baselineOutFile != "" {
		registry := mustRegistry(opts)
		b := baseline.FromSecrets(secrets, registry.Descriptions())
		if err := b.Save(baselineOutFile); err != nil {
			log.Fatal().Err(err).Str("filename", baselineOutFile).Msg("Failed writing baseline")
		}
		log.Info().Str("filename", baselineOutFile).Msg("Baseline written")
	}
}

func buildScanner(opts config.ScanOptions) *engine.Scanner {
	return engine.New(
		mustRegistry(opts),
		filters.DefaultChain(opts.BaselineFile),
		transformers.DefaultRegistry(),
		opts,
	)
}

func mustRegistry(opts config.ScanOptions) *plugins.Registry {
	var (
		registry *plugins.Registry
		err      error
	)
	if opts.Verify {
		registry, err = plugins.DefaultRegistryWithVerification(opts.VerifyTimeout)
	} else {
		registry, err = plugins.DefaultRegistry()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed building detector registry")
	}
	return registry
}

// filesToScan expands the given paths into regular files, walking
// directories and skipping VCS internals. With no paths, the working
// directory is scanned.
func filesToScan(paths []string) []string {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	out := []string{}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable path")
			continue
		}
		if !info.IsDir() {
			out = append(out, path)
			continue
		}

		walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn().Err(err).Str("path", p).Msg("Skipping unreadable path")
				return nil
			}
			if d.IsDir() {
				if d.Name() == ".git" || strings.HasPrefix(d.Name(), ".hg") {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				out = append(out, p)
			}
			return nil
		})
		if walkErr != nil {
			log.Warn().Err(walkErr).Str("path", path).Msg("Failed walking directory")
		}
	}
	return out
}
