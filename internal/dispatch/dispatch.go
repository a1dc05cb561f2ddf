// Package dispatch partitions a grammar's rules across output units by
// parserClass, drives the expression compiler, element-type emitter,
// and PSI emitter over each partition, and emits the root unit's
// parse() entry point and type_extends_ predicate. It is grounded on
// the teacher's internal/orchestration.DSLGenerator pipeline shape
// (resolve config, emit in dependency order, report what was written)
// and on internal/cli.MigrateVocabularyCommand's run-report/dry-run
// conventions.
package dispatch

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"parsergen/internal/attrs"
	"parsergen/internal/compiler"
	"parsergen/internal/emit"
	"parsergen/internal/gerrors"
	"parsergen/internal/grammarast"
	"parsergen/internal/inherit"
	"parsergen/internal/psi"
	"parsergen/internal/tokenset"
)

// Config resolves the root-scoped settings that govern how units are
// named and what every unit imports.
type Config struct {
	ElementTypeHolderClass string
	StubParserClass        string
	ParserImports          []string

	// RootParserClassOverride, when non-empty, designates which output
	// unit receives the root-unit treatment (parse() entry point and
	// type_extends_), instead of inferring it from the root rule's own
	// parserClass. Compared with trimmed string equality only (Open
	// Question (a): no further normalization).
	RootParserClassOverride string

	GeneratePsi bool
	PsiConfig   psi.Config
}

// UnitWriter opens a writer for a named output unit (a parser partition
// file, or one of a public rule's two PSI files). Callers choose the
// concrete writer: FileUnitWriter for real generation, MemoryUnitWriter
// for --dry-run.
type UnitWriter interface {
	Open(unitName string) (io.WriteCloser, error)
}

// FileReport records one emitted unit's size, for the generation
// report (spec section 9).
type FileReport struct {
	Unit  string
	Bytes int
}

// Report is Generate's return value: grounded on the teacher's
// orchestration.ExecutionResult/MigrationStatus result-struct
// convention.
type Report struct {
	RunID   string
	Files   []FileReport
	Elapsed time.Duration
}

// countingWriteCloser tallies bytes written through it, so dispatch can
// report a per-unit size without the output buffer needing to know.
type countingWriteCloser struct {
	io.WriteCloser
	n *int
}

func (c *countingWriteCloser) Write(p []byte) (int, error) {
	n, err := c.WriteCloser.Write(p)
	*c.n += n
	return n, err
}

// openCounting opens unitName through w and wraps it in a Buffer that
// tallies bytes into the returned counter.
func openCounting(w UnitWriter, unitName string) (*emit.Buffer, *int, error) {
	wc, err := w.Open(unitName)
	if err != nil {
		return nil, nil, &gerrors.IOError{Path: unitName, Err: err}
	}
	n := new(int)
	return emit.NewBuffer(&countingWriteCloser{WriteCloser: wc, n: n}), n, nil
}

// Generate runs the inheritance-analyzer-dependent pipeline stages
// (expression compiler, element-type emitter, PSI emitter) over every
// rule in g, partitioned by output unit, and returns a run report.
func Generate(g *grammarast.Grammar, res *attrs.Resolver, an *inherit.Analysis, helper psi.GraphHelper, cfg Config, w UnitWriter) (*Report, error) {
	start := time.Now()
	runID := uuid.New().String()

	ruleByName := g.RuleByName()
	root := g.RootRule()
	if root == nil {
		return nil, fmt.Errorf("dispatch: grammar has no rules")
	}

	unitOf := make(map[string]string, len(g.Rules))
	var unitOrder []string
	unitRules := make(map[string][]*grammarast.Rule)
	seenUnit := make(map[string]bool)
	for _, r := range g.Rules {
		unit := attrs.String(res, r.Name, "parserClass", "")
		unitOf[r.Name] = unit
		if !seenUnit[unit] {
			seenUnit[unit] = true
			unitOrder = append(unitOrder, unit)
		}
		unitRules[unit] = append(unitRules[unit], r)
	}

	rootUnit := unitOf[root.Name]
	if cfg.RootParserClassOverride != "" {
		rootUnit = cfg.RootParserClassOverride
	}
	isRootUnit := func(unit string) bool {
		return strings.TrimSpace(unit) == strings.TrimSpace(rootUnit)
	}

	unitLookup := func(ruleName string) string { return unitOf[ruleName] }
	tokens := tokenset.New()

	var report Report
	report.RunID = runID
	header := resolveFileHeader(res, runID)

	for _, unit := range unitOrder {
		unitStart := time.Now()
		buf, n, err := openCounting(w, unit)
		if err != nil {
			return nil, err
		}

		err = func() (ferr error) {
			defer func() {
				if cerr := buf.Close(); cerr != nil && ferr == nil {
					ferr = &gerrors.IOError{Path: unit, Err: cerr}
				}
			}()
			defer func() {
				if r := recover(); r != nil {
					if ue, ok := r.(*gerrors.UnexpectedExpressionError); ok {
						ferr = ue
						return
					}
					panic(r)
				}
			}()

			emitFileHeader(buf, header)
			emitImports(buf, cfg, unit, isRootUnit(unit), rootUnit)
			buf.Emit("public class " + unit + " implements PsiParser {")

			if isRootUnit(unit) {
				emitParseEntryPoint(buf, g, res, an, ruleByName, unitLookup, unit)
				emitTypeExtends(buf, an)
			}

			for _, r := range unitRules[unit] {
				forcePrivate := r == root
				if cerr := compiler.Compile(buf, r, res, an, tokens, ruleByName, unitLookup, unit, forcePrivate); cerr != nil {
					return cerr
				}
			}

			buf.Emit("}")
			return nil
		}()
		if err != nil {
			return nil, err
		}

		log.Printf("parsergen[%s]: unit %s written (%d bytes, %s)", runID, unit, *n, time.Since(unitStart))
		report.Files = append(report.Files, FileReport{Unit: unit, Bytes: *n})
	}

	if cfg.GeneratePsi {
		if err := emitPsiUnits(g, res, helper, cfg.PsiConfig, w, &report, runID, header); err != nil {
			return nil, err
		}
	}

	holderName := cfg.ElementTypeHolderClass
	if err := emitHolderUnit(g, res, an, tokens, w, holderName, cfg.GeneratePsi, &report, runID, header); err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(start)
	return &report, nil
}

func emitImports(buf *emit.Buffer, cfg Config, unit string, isRoot bool, rootUnit string) {
	if cfg.ElementTypeHolderClass != "" {
		buf.Emit("import " + cfg.ElementTypeHolderClass + ";")
	}
	if cfg.StubParserClass != "" {
		buf.Emit("import static " + cfg.StubParserClass + ".*;")
	}
	for _, imp := range cfg.ParserImports {
		buf.Emit("import " + imp + ";")
	}
	if !isRoot && rootUnit != "" {
		buf.Emit("import static " + rootUnit + ".*;")
	}
	buf.EmitBlank()
}
