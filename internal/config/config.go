// Package config loads transform pipelines from YAML files, so that a
// multi-input, filtered, merged transform is reproducible from one
// declaration instead of a shell history.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kgraph-dev/biograph/internal/clique"
	"github.com/kgraph-dev/biograph/internal/record"
	"github.com/kgraph-dev/biograph/internal/stream"
)

// Config is a full pipeline declaration.
type Config struct {
	// Name labels the pipeline in logs.
	Name string `yaml:"name"`

	// Inputs are read in declaration order.
	Inputs []Input `yaml:"inputs"`

	// Output is where the resulting graph is written.
	Output Output `yaml:"output"`

	// Operations are applied to the materialized graph between reading
	// and writing.
	Operations Operations `yaml:"operations,omitempty"`
}

// Input declares one logical input.
type Input struct {
	Format   string              `yaml:"format,omitempty"`
	Paths    []string            `yaml:"paths"`
	Name     string              `yaml:"name,omitempty"`
	Filters  Filters             `yaml:"filters,omitempty"`
	PageSize int                 `yaml:"page_size,omitempty"`
}

// Filters declares node and edge filters as property -> accepted values.
type Filters struct {
	Node map[string][]string `yaml:"node,omitempty"`
	Edge map[string][]string `yaml:"edge,omitempty"`
}

// Output declares the destination.
type Output struct {
	Format   string `yaml:"format"`
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress,omitempty"`
}

// Operations declares optional graph-level passes.
type Operations struct {
	CliqueMerge *CliqueMerge `yaml:"clique_merge,omitempty"`
	Merge       *Merge       `yaml:"merge,omitempty"`
}

// CliqueMerge declares an identity-resolution pass.
type CliqueMerge struct {
	PrefixPriorities map[string][]string `yaml:"prefix_priorities,omitempty"`
	PruneNonLeaders  bool                `yaml:"prune_non_leaders,omitempty"`
}

// Merge declares the conflict policy used when inputs overlap.
type Merge struct {
	Preserve bool `yaml:"preserve,omitempty"`
}

// Load reads and validates a pipeline declaration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a pipeline declaration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the declaration before any I/O happens.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("config declares no inputs")
	}
	for i, in := range c.Inputs {
		if len(in.Paths) == 0 {
			return errors.Errorf("input %d declares no paths", i)
		}
		if in.Format != "" {
			if _, err := stream.ParseFormat(in.Format); err != nil {
				return errors.Wrapf(err, "input %d", i)
			}
		}
	}
	if c.Output.Path == "" {
		return errors.New("config declares no output path")
	}
	if c.Output.Format == "" {
		return errors.New("config declares no output format")
	}
	if _, err := stream.ParseFormat(c.Output.Format); err != nil {
		return errors.Wrap(err, "output")
	}
	return nil
}

// InputSpecs converts the declared inputs for the transformer.
func (c *Config) InputSpecs() ([]stream.InputSpec, error) {
	specs := make([]stream.InputSpec, 0, len(c.Inputs))
	for _, in := range c.Inputs {
		spec := stream.InputSpec{
			Paths:    in.Paths,
			Name:     in.Name,
			Filters:  in.Filters.FilterSet(),
			PageSize: in.PageSize,
		}
		if in.Format != "" {
			f, err := stream.ParseFormat(in.Format)
			if err != nil {
				return nil, err
			}
			spec.Format = f
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// OutputSpec converts the declared output for the transformer.
func (c *Config) OutputSpec() (stream.OutputSpec, error) {
	f, err := stream.ParseFormat(c.Output.Format)
	if err != nil {
		return stream.OutputSpec{}, err
	}
	return stream.OutputSpec{
		Format:   f,
		Path:     c.Output.Path,
		Compress: c.Output.Compress,
	}, nil
}

// FilterSet converts declared filters; nil when nothing was declared.
func (f Filters) FilterSet() *record.FilterSet {
	if len(f.Node) == 0 && len(f.Edge) == 0 {
		return nil
	}
	fs := record.NewFilterSet()
	for prop, values := range f.Node {
		fs.SetNodeFilter(prop, values...)
	}
	for prop, values := range f.Edge {
		fs.SetEdgeFilter(prop, values...)
	}
	return fs
}

// CliqueOptions converts the clique_merge declaration; ok reports whether
// the pass was declared at all.
func (c *Config) CliqueOptions() (clique.Options, bool) {
	if c.Operations.CliqueMerge == nil {
		return clique.Options{}, false
	}
	return clique.Options{
		PrefixPriorities: c.Operations.CliqueMerge.PrefixPriorities,
		PruneNonLeaders:  c.Operations.CliqueMerge.PruneNonLeaders,
	}, true
}
