package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/competitor-scanner/app/config"
	"github.com/competitor-scanner/internal/extractor"
	"github.com/competitor-scanner/internal/scanner"
)

// scanfile checks files (or stdin) for competitor mentions offline, with
// the same pipeline the service runs. Exits 1 when anything was flagged.

func main() {
	competitors := flag.String("competitors", "", "Comma-separated competitor names to scan for")
	configFile := flag.String("config", "", "Path to scanner.yaml (used when -competitors is empty)")
	threshold := flag.Float64("threshold", 0, "Similarity threshold in (0,1], 0 means the default")
	redact := flag.Bool("redact", false, "Emit redacted copies of flagged inputs")
	outDir := flag.String("o", "", "Directory for redacted copies (default: stdout)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	scanners, err := buildPipeline(*competitors, *configFile, *threshold)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	inputs := flag.Args()
	anyFlagged := false

	if len(inputs) == 0 {
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error: read stdin:", err)
			os.Exit(2)
		}
		flagged, err := scanOne(scanners, "stdin", string(text), *redact, *outDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(2)
		}
		anyFlagged = flagged
	}

	for _, path := range inputs {
		text, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read %s: %v\n", path, err)
			os.Exit(2)
		}
		flagged, err := scanOne(scanners, path, string(text), *redact, *outDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: scan %s: %v\n", path, err)
			os.Exit(2)
		}
		anyFlagged = anyFlagged || flagged
	}

	if anyFlagged {
		os.Exit(1)
	}
}

// buildPipeline assembles scanners from the -competitors flag or, when
// that is empty, from the YAML config.
func buildPipeline(competitors, configFile string, threshold float64) ([]*scanner.Scanner, error) {
	logger := zap.NewNop()
	ex := extractor.NewProseExtractor(nil, logger)

	if competitors != "" {
		var names []string
		for _, name := range strings.Split(competitors, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}

		sc, err := scanner.New(scanner.Config{
			Name:        "cli",
			Competitors: names,
			Threshold:   threshold,
			Redact:      true,
		}, ex, logger)
		if err != nil {
			return nil, err
		}
		return []*scanner.Scanner{sc}, nil
	}

	if configFile == "" {
		return nil, fmt.Errorf("either -competitors or -config is required")
	}
	if err := config.Load(configFile); err != nil {
		return nil, err
	}
	if len(config.C.Scanners) == 0 {
		return nil, fmt.Errorf("no scanners in %s", configFile)
	}

	scanners := make([]*scanner.Scanner, 0, len(config.C.Scanners))
	for _, cfg := range config.C.Scanners {
		sc, err := scanner.New(cfg.Config, ex, logger)
		if err != nil {
			return nil, err
		}
		scanners = append(scanners, sc)
	}
	return scanners, nil
}

// scanOne runs one text through the pipeline and prints its verdict.
// Returns whether the text was flagged.
func scanOne(scanners []*scanner.Scanner, name, text string, redact bool, outDir string) (bool, error) {
	sanitized := text
	flagged := false
	var hits []string

	for _, sc := range scanners {
		result, err := sc.Scan(context.Background(), "", sanitized)
		if err != nil {
			return false, err
		}
		sanitized = result.SanitizedText
		if !result.IsValid {
			flagged = true
			for _, m := range result.Matches {
				hits = append(hits, m.Competitor)
			}
		}
	}

	if flagged {
		color.New(color.FgRed).Printf("FLAGGED %s (%d mentions: %s)\n",
			name, len(hits), strings.Join(dedupe(hits), ", "))
	} else {
		color.New(color.FgGreen).Printf("CLEAN   %s\n", name)
		return false, nil
	}

	if !redact {
		return true, nil
	}

	if outDir == "" {
		fmt.Println(sanitized)
		return true, nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return true, err
	}
	out := filepath.Join(outDir, filepath.Base(name))
	if err := os.WriteFile(out, []byte(sanitized), 0o644); err != nil {
		return true, err
	}
	fmt.Printf("        wrote %s\n", out)
	return true, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
