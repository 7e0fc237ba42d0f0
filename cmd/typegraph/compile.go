package main

import (
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hanpama/typegraph/internal/schema"
	"github.com/hanpama/typegraph/internal/sdl"
	"github.com/hanpama/typegraph/internal/typegraph"
)

func newCompileSDLCmd(a *app) *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "compile-sdl",
		Short: "Merge, resolve and validate the schema and print it as SDL",
		Long: `Loads every configured SDL source, resolves interface closures and
field sets, and prints the resulting schema. Validation always runs; the
command exits non-zero on errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			disc, err := sdl.NewFileSystemDiscovery(a.cfg.Schema.Paths)
			if err != nil {
				return err
			}
			sch, err := buildSchema(cmd.Context(), a.cfg, disc, a.logger)
			if err != nil {
				return err
			}
			out := schema.Render(sch)
			if outFile == "" {
				_, err := fmt.Fprint(a.stdout, out)
				return err
			}
			return os.WriteFile(outFile, []byte(out), 0o644)
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write compiled SDL to file (default: stdout)")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect <type>",
		Short: "Print the resolved form of a type",
		Long: `Prints the resolved interface closure and field set of a single type.
Field conflicts are reported after the type; in strict mode they make the
command fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			disc, err := sdl.NewFileSystemDiscovery(a.cfg.Schema.Paths)
			if err != nil {
				return err
			}
			reg, err := registry(cmd.Context(), a.cfg, disc, a.logger)
			if err != nil {
				return err
			}

			typ, resolveErr := reg.Resolve(args[0])
			if typ.Kind == schema.TypeKindUnknown {
				return fmt.Errorf("type %q is not registered", args[0])
			}
			if err := writeType(a, typ, format); err != nil {
				return err
			}
			var ve typegraph.ValidationError
			if errors.As(resolveErr, &ve) {
				return fmt.Errorf("type %q has %d conflicting field definitions: %w", args[0], len(ve), ve)
			}
			return resolveErr
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "sdl", "output format: sdl, json or yaml")
	return cmd
}

func writeType(a *app, typ *schema.Type, format string) error {
	switch format {
	case "sdl":
		sch := schema.NewSchema("")
		sch.AddType(typ)
		_, err := fmt.Fprint(a.stdout, schema.Render(sch))
		return err
	case "json":
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(typ)
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(typ); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
