// Package cmd provides the CLI command implementations for biograph.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kgraph-dev/biograph/internal/clique"
	"github.com/kgraph-dev/biograph/internal/config"
	"github.com/kgraph-dev/biograph/internal/graph"
	"github.com/kgraph-dev/biograph/internal/merge"
	"github.com/kgraph-dev/biograph/internal/record"
	"github.com/kgraph-dev/biograph/internal/source"
	"github.com/kgraph-dev/biograph/internal/stats"
	"github.com/kgraph-dev/biograph/internal/store"
	"github.com/kgraph-dev/biograph/internal/stream"
	"github.com/kgraph-dev/biograph/internal/validate"
	"github.com/kgraph-dev/biograph/internal/watch"
	"github.com/kgraph-dev/biograph/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// TransformCmd reads one or more inputs and writes them in another
// serialization, optionally filtered.
type TransformCmd struct {
	Inputs       []string `arg:"" help:"Input files or directories"`
	InputFormat  string   `short:"i" help:"Input format (inferred from extensions if omitted)"`
	Output       string   `short:"o" required:"" help:"Output path"`
	OutputFormat string   `short:"f" help:"Output format (inferred from output extension if omitted)"`
	Compress     bool     `help:"Gzip-compress the output"`
	Name         string   `help:"Provenance tag for all inputs"`
	NodeFilter   []string `help:"Node filter clause, e.g. category=biolink:Gene,biolink:Disease"`
	EdgeFilter   []string `help:"Edge filter clause, e.g. predicate=biolink:interacts_with"`
	Stream       bool     `help:"Pipe records through without materializing a graph"`
	PageSize     int      `help:"Records per page when reading a store input"`
}

// Run executes the transform command.
func (c *TransformCmd) Run(cli *CLI) error {
	input, output, err := resolveSpecs(c.Inputs, c.InputFormat, c.Output, c.OutputFormat, c.Compress, c.PageSize)
	if err != nil {
		return err
	}
	input.Name = c.Name
	input.Filters, err = buildFilters(c.NodeFilter, c.EdgeFilter)
	if err != nil {
		return err
	}

	t := stream.NewTransformer(stream.WithLogger(cli.logger()))
	if c.Stream {
		err = t.Stream(input, output)
	} else {
		err = t.Transform(input, output)
	}
	if err != nil {
		return err
	}

	reportErrors(t.Report())
	color.Green("Wrote %s", output.Path)
	return nil
}

// MergeCmd unions several graphs into one output.
type MergeCmd struct {
	Inputs       []string `arg:"" help:"Input files or directories"`
	InputFormat  string   `short:"i" help:"Input format (inferred from extensions if omitted)"`
	Output       string   `short:"o" required:"" help:"Output path"`
	OutputFormat string   `short:"f" help:"Output format (inferred from output extension if omitted)"`
	Compress     bool     `help:"Gzip-compress the output"`
	Preserve     bool     `help:"Keep conflicting property values as multi-valued lists"`
}

// Run executes the merge command.
func (c *MergeCmd) Run(cli *CLI) error {
	input, output, err := resolveSpecs(c.Inputs, c.InputFormat, c.Output, c.OutputFormat, c.Compress, 0)
	if err != nil {
		return err
	}
	log := cli.logger()

	// Each file is loaded into its own graph in parallel, then folded
	// under the conflict policy.
	report := validate.NewReport()
	transformers := make([]*stream.Transformer, len(input.Paths))
	var g errgroup.Group
	for i, path := range input.Paths {
		g.Go(func() error {
			t := stream.NewTransformer(stream.WithLogger(log), stream.WithReport(report))
			transformers[i] = t
			return t.Process(stream.InputSpec{
				Format:   input.Format,
				Paths:    []string{path},
				PageSize: input.PageSize,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	graphs := make([]*graph.KnowledgeGraph, len(transformers))
	for i, t := range transformers {
		graphs[i] = t.Graph()
	}
	all := merge.All(graphs, merge.Options{Preserve: c.Preserve, Logger: log})

	final := stream.NewTransformer(stream.WithGraph(all), stream.WithLogger(log))
	if err := final.Save(output); err != nil {
		return err
	}

	reportErrors(report)
	color.Green("Merged %d inputs into %s (%d nodes, %d edges)",
		len(input.Paths), output.Path, all.NodeCount(), all.EdgeCount())
	return nil
}

// CliqueMergeCmd collapses same_as cliques onto elected leaders.
type CliqueMergeCmd struct {
	Inputs       []string `arg:"" help:"Input files or directories"`
	InputFormat  string   `short:"i" help:"Input format (inferred from extensions if omitted)"`
	Output       string   `short:"o" required:"" help:"Output path"`
	OutputFormat string   `short:"f" help:"Output format (inferred from output extension if omitted)"`
	Compress     bool     `help:"Gzip-compress the output"`
	Priority     []string `help:"Prefix priority per category, e.g. biolink:Gene=HGNC,NCBIGene,ENSEMBL"`
	Prune        bool     `help:"Remove non-leader nodes after consolidation"`
}

// Run executes the clique-merge command.
func (c *CliqueMergeCmd) Run(cli *CLI) error {
	input, output, err := resolveSpecs(c.Inputs, c.InputFormat, c.Output, c.OutputFormat, c.Compress, 0)
	if err != nil {
		return err
	}
	priorities, err := parsePriorities(c.Priority)
	if err != nil {
		return err
	}

	t := stream.NewTransformer(stream.WithLogger(cli.logger()))
	if err := t.Process(input); err != nil {
		return err
	}

	result := clique.Merge(t.Graph(), clique.Options{
		PrefixPriorities: priorities,
		PruneNonLeaders:  c.Prune,
		Logger:           cli.logger(),
	})

	if err := t.Save(output); err != nil {
		return err
	}

	reportErrors(t.Report())
	color.Green("Merged %d cliques (%d edges consolidated, %d nodes pruned)",
		result.Cliques, result.ConsolidatedEdges, result.PrunedNodes)
	return nil
}

// ValidateCmd checks a graph against the biolink naming conventions and
// referential integrity.
type ValidateCmd struct {
	Inputs      []string `arg:"" help:"Input files or directories"`
	InputFormat string   `short:"i" help:"Input format (inferred from extensions if omitted)"`
	ReportOnly  bool     `help:"Print findings without failing"`
}

// Run executes the validate command.
func (c *ValidateCmd) Run(cli *CLI) error {
	input, err := resolveInput(c.Inputs, c.InputFormat, 0)
	if err != nil {
		return err
	}

	t := stream.NewTransformer(stream.WithLogger(cli.logger()))
	if err := t.Process(input); err != nil {
		return err
	}

	report := validate.ValidateGraph(t.Graph(), validate.NewBiolinkValidator())
	for _, e := range t.Report().Errors() {
		fmt.Println(e.String())
	}
	for _, e := range report.Errors() {
		fmt.Println(e.String())
	}

	total := report.Len() + t.Report().Len()
	if total == 0 {
		color.Green("✓ No problems found")
		return nil
	}
	if c.ReportOnly {
		color.Yellow("%d problem(s) found", total)
		return nil
	}
	return fmt.Errorf("validation found %d problem(s)", total)
}

// SummaryCmd prints graph statistics.
type SummaryCmd struct {
	Inputs      []string `arg:"" help:"Input files or directories"`
	InputFormat string   `short:"i" help:"Input format (inferred from extensions if omitted)"`
	Output      string   `short:"o" help:"Write the summary to a file instead of stdout"`
	JSON        bool     `help:"Emit JSON instead of YAML"`
}

// Run executes the summary command.
func (c *SummaryCmd) Run(cli *CLI) error {
	input, err := resolveInput(c.Inputs, c.InputFormat, 0)
	if err != nil {
		return err
	}

	t := stream.NewTransformer(stream.WithLogger(cli.logger()))
	if err := t.Process(input); err != nil {
		return err
	}
	summary := stats.Summarize(t.Graph())

	var data []byte
	if c.JSON {
		data, err = json.MarshalIndent(summary, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(summary)
	}
	if err != nil {
		return err
	}

	if c.Output == "" {
		fmt.Print(string(data))
		return nil
	}
	return os.WriteFile(c.Output, data, 0o644)
}

// RunCmd executes a pipeline declared in a YAML config.
type RunCmd struct {
	Config string `arg:"" help:"Pipeline config file"`
}

// Run executes the run command.
func (c *RunCmd) Run(cli *CLI) error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	return runPipeline(cfg, cli.logger())
}

// WatchCmd runs a transform and re-runs it whenever the inputs change.
type WatchCmd struct {
	Inputs       []string `arg:"" help:"Input files or directories"`
	InputFormat  string   `short:"i" help:"Input format (inferred from extensions if omitted)"`
	Output       string   `short:"o" required:"" help:"Output path"`
	OutputFormat string   `short:"f" help:"Output format (inferred from output extension if omitted)"`
	Compress     bool     `help:"Gzip-compress the output"`
}

// Run executes the watch command. Blocks until interrupted.
func (c *WatchCmd) Run(cli *CLI) error {
	run := func() error {
		input, output, err := resolveSpecs(c.Inputs, c.InputFormat, c.Output, c.OutputFormat, c.Compress, 0)
		if err != nil {
			return err
		}
		t := stream.NewTransformer(stream.WithLogger(cli.logger()))
		if err := t.Transform(input, output); err != nil {
			return err
		}
		reportErrors(t.Report())
		color.Green("Wrote %s", output.Path)
		return nil
	}

	if err := run(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Watching %s for changes (Ctrl+C to stop)\n", strings.Join(c.Inputs, ", "))
	err := watch.Run(ctx, c.Inputs, watch.Options{
		Extensions: stream.Extensions(),
		Logger:     cli.logger(),
	}, func([]string) error {
		return run()
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

// MCPCmd serves a persisted graph over the Model Context Protocol.
type MCPCmd struct {
	Store string `arg:"" help:"Path to a graph store directory"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(cli *CLI) error {
	st, err := store.Open(c.Store)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	server := mcp.NewServer(st)
	// No stderr chatter here: stdio carries JSON-RPC only.
	return server.Run(context.Background(), os.Stdin, os.Stdout)
}

// Helper functions

func runPipeline(cfg *config.Config, log logr.Logger) error {
	inputs, err := cfg.InputSpecs()
	if err != nil {
		return err
	}
	output, err := cfg.OutputSpec()
	if err != nil {
		return err
	}

	t := stream.NewTransformer(stream.WithLogger(log))
	for _, input := range inputs {
		expanded, err := expandPaths(input)
		if err != nil {
			return err
		}
		if err := t.Process(expanded); err != nil {
			return err
		}
	}

	if opts, ok := cfg.CliqueOptions(); ok {
		opts.Logger = log
		result := clique.Merge(t.Graph(), opts)
		color.Green("Merged %d cliques (%d edges consolidated)",
			result.Cliques, result.ConsolidatedEdges)
	}

	if err := t.Save(output); err != nil {
		return err
	}
	reportErrors(t.Report())
	color.Green("Wrote %s (%d nodes, %d edges)",
		output.Path, t.Graph().NodeCount(), t.Graph().EdgeCount())
	return nil
}

// resolveInput expands directories and infers the input format.
func resolveInput(locations []string, formatFlag string, pageSize int) (stream.InputSpec, error) {
	spec := stream.InputSpec{PageSize: pageSize}
	if formatFlag != "" {
		f, err := stream.ParseFormat(formatFlag)
		if err != nil {
			return spec, err
		}
		spec.Format = f
	}

	if spec.Format == stream.FormatStore {
		// Store inputs are directories themselves; no discovery.
		spec.Paths = locations
		return spec, nil
	}

	paths, err := source.DiscoverInputs(locations, stream.Extensions())
	if err != nil {
		return spec, err
	}
	spec.Paths = paths
	return expandPaths(spec)
}

func expandPaths(spec stream.InputSpec) (stream.InputSpec, error) {
	if spec.Format == "" {
		f, err := stream.InferInputFormat(spec.Paths)
		if err != nil {
			return spec, err
		}
		spec.Format = f
	}
	return spec, nil
}

func resolveSpecs(locations []string, inFormat, outPath, outFormat string, compress bool, pageSize int) (stream.InputSpec, stream.OutputSpec, error) {
	input, err := resolveInput(locations, inFormat, pageSize)
	if err != nil {
		return input, stream.OutputSpec{}, err
	}

	output := stream.OutputSpec{Path: outPath, Compress: compress}
	if outFormat != "" {
		f, err := stream.ParseFormat(outFormat)
		if err != nil {
			return input, output, err
		}
		output.Format = f
	} else {
		f, err := stream.InferFormat(outPath)
		if err != nil {
			return input, output, err
		}
		output.Format = f
	}
	return input, output, nil
}

// buildFilters parses clause flags of the form key=value[,value...].
func buildFilters(nodeClauses, edgeClauses []string) (*record.FilterSet, error) {
	if len(nodeClauses) == 0 && len(edgeClauses) == 0 {
		return nil, nil
	}
	fs := record.NewFilterSet()
	for _, clause := range nodeClauses {
		key, values, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		fs.SetNodeFilter(key, values...)
	}
	for _, clause := range edgeClauses {
		key, values, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		fs.SetEdgeFilter(key, values...)
	}
	return fs, nil
}

func parseClause(clause string) (string, []string, error) {
	key, rest, ok := strings.Cut(clause, "=")
	if !ok || key == "" || rest == "" {
		return "", nil, fmt.Errorf("malformed filter clause %q (want key=value[,value...])", clause)
	}
	return key, strings.Split(rest, ","), nil
}

// parsePriorities parses flags of the form category=PREFIX[,PREFIX...].
func parsePriorities(clauses []string) (map[string][]string, error) {
	if len(clauses) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(clauses))
	for _, clause := range clauses {
		category, prefixes, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		out[category] = prefixes
	}
	return out, nil
}

func reportErrors(report *validate.Report) {
	if report.Len() == 0 {
		return
	}
	color.Yellow("%d record(s) dropped:", report.Len())
	for _, e := range report.Errors() {
		fmt.Fprintf(os.Stderr, "  %s\n", e.String())
	}
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`

	// Commands
	Transform   TransformCmd   `cmd:"" help:"Convert a graph between serializations"`
	Merge       MergeCmd       `cmd:"" help:"Union several graphs into one"`
	CliqueMerge CliqueMergeCmd `cmd:"" name:"clique-merge" help:"Collapse same_as cliques onto elected leaders"`
	Validate    ValidateCmd    `cmd:"" help:"Check a graph against naming and integrity rules"`
	Summary     SummaryCmd     `cmd:"" help:"Print graph statistics"`
	Run         RunCmd         `cmd:"" help:"Execute a pipeline declared in a YAML config"`
	Watch       WatchCmd       `cmd:"" help:"Re-run a transform whenever the inputs change"`
	MCP         MCPCmd         `cmd:"" help:"Serve a graph store over MCP (stdio transport)"`
}

// logger returns the diagnostic logger for the selected verbosity.
func (c *CLI) logger() logr.Logger {
	if !c.Verbose {
		return logr.Discard()
	}
	return funcr.New(func(prefix, args string) {
		fmt.Fprintln(os.Stderr, prefix, args)
	}, funcr.Options{Verbosity: 2})
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("biograph"),
		kong.Description("Knowledge graph exchange toolkit for biolink-flavored graphs"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
		kong.Bind(c),
	)

	return kongCtx.Run()
}
