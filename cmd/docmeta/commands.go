package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pedrohavay/docmeta/meta"
)

// requestFlags describe the request a composite tree is built for.
type requestFlags struct {
	version    string
	projection string
	query      string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.version, "version", "", "Entity version (default: the entity's default version)")
	cmd.Flags().StringVar(&f.projection, "projection", "", "Projection as JSON or YAML")
	cmd.Flags().StringVar(&f.query, "query", "", "Query as JSON or YAML")
}

// build loads entity and builds its composite metadata for the request.
func (f *requestFlags) build(a *app, entity string) (*meta.CompositeMetadata, error) {
	m, err := a.loadModel()
	if err != nil {
		return nil, err
	}
	md, err := m.Get(entity, f.version)
	if err != nil {
		return nil, err
	}
	var (
		projection meta.Projection
		query      meta.QueryExpression
	)
	if f.projection != "" {
		if projection, err = meta.ParseProjection([]byte(f.projection)); err != nil {
			return nil, err
		}
	}
	if f.query != "" {
		if query, err = meta.ParseQuery([]byte(f.query)); err != nil {
			return nil, err
		}
	}
	return meta.BuildCompositeMetadata(md, m.GetMetadataFor(projection, query), meta.WithLogger(a.logger))
}

func newEntitiesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List entities and their versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadModel()
			if err != nil {
				return err
			}
			nameColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()
			for _, name := range m.Entities() {
				info, _ := m.Info(name)
				nameColor.Fprint(out, name)
				fmt.Fprintf(out, " %s (versions: %s)\n", info.DefaultVersion, strings.Join(m.Versions(name), ", "))
			}
			return nil
		},
	}
}

func newTreeCommand(a *app) *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "tree <entity>",
		Short: "Show which references a request expands",
		Example: `  docmeta tree A --projection '{"field":"b","include":1}'
  docmeta tree R --projection '{"field":"r.*.r.*.b"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := flags.build(a, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cm.TreeString())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newFieldsCommand(a *app) *cobra.Command {
	var (
		flags  requestFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "fields <entity>",
		Short: "List every field of the composite tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := flags.build(a, args[0])
			if err != nil {
				return err
			}
			fields := meta.ListFields(cm)
			switch format {
			case "jsonl":
				return meta.WriteFieldsJSONL(cmd.OutOrStdout(), fields)
			case "msgpack":
				return meta.WriteFieldsMsgpack(cmd.OutOrStdout(), fields)
			case "csv":
				return meta.WriteFieldsCSV(cmd.OutOrStdout(), fields)
			}
			return fmt.Errorf("unknown format: %s", format)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "jsonl", "Output format: jsonl, msgpack or csv")
	return cmd
}

func newResolveCommand(a *app) *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "resolve <entity> <path>",
		Short: "Resolve a field path in the composite tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := flags.build(a, args[0])
			if err != nil {
				return err
			}
			n, err := cm.Resolve(meta.ParsePath(args[1]))
			if err != nil {
				return err
			}
			owner := cm.EntityOf(n)
			out := cmd.OutOrStdout()
			color.New(color.FgCyan, color.Bold).Fprint(out, n.FullPath().String())
			fmt.Fprintf(out, " %s %s@%s %s\n", n.Type().Name(), owner.Name(), owner.VersionValue(), meta.EntityRelativeFieldName(n))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "check <entity> <path> <value>",
		Short: "Validate a value against a field's type and constraints",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadModel()
			if err != nil {
				return err
			}
			md, err := m.Get(args[0], version)
			if err != nil {
				return err
			}
			if err := md.ValidateValue(args[1], args[2]); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "Entity version")
	return cmd
}

func newGraphCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the references between entity versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadModel()
			if err != nil {
				return err
			}
			g := m.ReferenceGraph()
			out := cmd.OutOrStdout()
			for _, e := range g.Edges() {
				fmt.Fprintf(out, "%s -%s-> %s\n", e.SourceID, e.Field, e.TargetID)
			}
			warn := color.New(color.FgYellow)
			for _, n := range g.Nodes() {
				if g.Recursive(n.ID) {
					warn.Fprintf(out, "recursive: %s\n", n.ID)
				}
			}
			return nil
		},
	}
}
