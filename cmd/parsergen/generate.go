package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"parsergen/internal/attrs"
	"parsergen/internal/attrstore"
	"parsergen/internal/dispatch"
	"parsergen/internal/gload"
	"parsergen/internal/grammarast"
	"parsergen/internal/inherit"
	"parsergen/internal/psi"
)

func newGenerateCommand() *cobra.Command {
	var (
		grammarPath     string
		outDir          string
		grammarName     string
		rootParserClass string
		holderClass     string
		fileHeader      string
		dbConnStr       string
		generatePsi     bool
		psiPackage      string
		psiImplPackage  string
		dryRun          bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a parser from a grammar expression tree fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), generateOptions{
				grammarPath:     grammarPath,
				outDir:          outDir,
				grammarName:     grammarName,
				rootParserClass: rootParserClass,
				holderClass:     holderClass,
				fileHeader:      fileHeader,
				dbConnStr:       dbConnStr,
				generatePsi:     generatePsi,
				psiPackage:      psiPackage,
				psiImplPackage:  psiImplPackage,
				dryRun:          dryRun,
			})
		},
	}

	cmd.Flags().StringVar(&grammarPath, "grammar", "", "path to the grammar expression tree fixture (JSON)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory for generated files (ignored under --dry-run)")
	cmd.Flags().StringVar(&grammarName, "grammar-name", "", "grammar name used to key --db attribute overrides (defaults to --grammar's base name)")
	cmd.Flags().StringVar(&rootParserClass, "root-parser-class", "", "override which output unit receives the root parse() entry point")
	cmd.Flags().StringVar(&holderClass, "element-type-holder", "GeneratedTypes", "class name for the element-type holder unit")
	cmd.Flags().StringVar(&fileHeader, "file-header", "", "literal header text or a path to a header-template file, applied to every generated unit")
	cmd.Flags().StringVar(&dbConnStr, "db", "", "attribute-override database connection string (when set, its overrides outrank root-scoped grammar attributes; rule-local attributes still win)")
	cmd.Flags().BoolVar(&generatePsi, "generate-psi", false, "also emit PSI interface/implementation pairs for every public rule")
	cmd.Flags().StringVar(&psiPackage, "psi-package", "", "Java package for generated PSI interfaces")
	cmd.Flags().StringVar(&psiImplPackage, "psi-impl-package", "", "Java package for generated PSI implementations")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run every component but write to memory instead of disk")

	cmd.MarkFlagRequired("grammar")

	return cmd
}

type generateOptions struct {
	grammarPath     string
	outDir          string
	grammarName     string
	rootParserClass string
	holderClass     string
	fileHeader      string
	dbConnStr       string
	generatePsi     bool
	psiPackage      string
	psiImplPackage  string
	dryRun          bool
}

func runGenerate(ctx context.Context, opts generateOptions) error {
	if !opts.dryRun && opts.outDir == "" {
		return fmt.Errorf("--out is required unless --dry-run is set")
	}

	g, err := gload.Load(opts.grammarPath)
	if err != nil {
		return fmt.Errorf("parsergen: failed to load grammar: %w", err)
	}

	grammarName := opts.grammarName
	if grammarName == "" {
		grammarName = strings.TrimSuffix(baseName(opts.grammarPath), ".json")
	}

	var overrides attrs.Overrides
	if opts.dbConnStr != "" {
		repo, err := attrstore.Open(ctx, opts.dbConnStr)
		if err != nil {
			return fmt.Errorf("parsergen: failed to open attribute overrides store: %w", err)
		}
		defer repo.Close()
		overrides = attrstore.AsOverrides{Repo: repo}
	}

	if opts.fileHeader != "" {
		g.RootAttrs = append(g.RootAttrs, grammarast.Attribute{Name: "fileHeader", Value: opts.fileHeader})
	}

	res := attrs.New(g, grammarName, overrides)
	an := inherit.Analyze(g, res)
	helper := psi.FromGrammar(g)

	cfg := dispatch.Config{
		ElementTypeHolderClass:  opts.holderClass,
		RootParserClassOverride: opts.rootParserClass,
		GeneratePsi:             opts.generatePsi,
		PsiConfig: psi.Config{
			PsiPackage:     opts.psiPackage,
			PsiImplPackage: opts.psiImplPackage,
		},
	}

	var writer dispatch.UnitWriter
	if opts.dryRun {
		writer = dispatch.NewMemoryUnitWriter()
	} else {
		writer = dispatch.FileUnitWriter{Dir: opts.outDir}
	}

	start := time.Now()
	report, err := dispatch.Generate(g, res, an, helper, cfg, writer)
	if err != nil {
		return fmt.Errorf("parsergen: generation failed: %w", err)
	}

	fmt.Printf("run %s: %d files written in %v\n", report.RunID, len(report.Files), time.Since(start))
	for _, f := range report.Files {
		prefix := "wrote"
		if opts.dryRun {
			prefix = "would write"
		}
		fmt.Printf("  %s %s (%d bytes)\n", prefix, f.Unit, f.Bytes)
	}
	return nil
}

func baseName(path string) string {
	i := strings.LastIndexAny(path, "/\\")
	return path[i+1:]
}
