// Command cllvm compiles a supported C subset to LLVM textual IR:
// read source, parse, generate, write "<input>.ll", with an optional
// verbose module dump.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"cllvm/internal/ast"
	"cllvm/internal/codegen"
)

// Parser is the collaborator contract cllvm depends on but does not
// implement: lexing and parsing C source into an *ast.Node tree is an
// external concern. Wire in a real parser generator's output by
// implementing this interface.
type Parser interface {
	Parse(path string, src []byte) (*ast.Node, error)
}

// parser is resolved at startup; a production build replaces this with a
// generated parser's adapter before main runs.
var parser Parser

func main() {
	var out string
	var verbose bool

	root := &cobra.Command{
		Use:     "cllvm <path/to/file.c>",
		Short:   "Compile a C subset to LLVM textual IR",
		Args:    cobra.ExactArgs(1),
		Version: "0.1.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if out == "" {
				out = defaultOutputPath(src)
			}
			return compile(src, out, verbose)
		},
	}

	root.Flags().StringVarP(&out, "out", "o", "", "output path (default: input path with .ll extension)")
	root.Flags().BoolVar(&verbose, "verbose", false, "dump the generated module to stdout")
	root.Flags().BoolVar(&verbose, "vb", false, "alias for --verbose")

	// pflag reads a single-dash "-vb" as two bundled one-character
	// shorthands; promote the literal spelling to its long form so both
	// -vb and --vb select the verbose dump.
	args := os.Args[1:]
	for i, a := range args {
		if a == "-vb" {
			args[i] = "--vb"
		}
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// defaultOutputPath derives "<path/to/file.ll>" from a "<path/to/file.c>"
// source path.
func defaultOutputPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + ".ll"
}

func compile(src, out string, verbose bool) error {
	if parser == nil {
		return errors.New("no parser collaborator wired in; see cmd/cllvm.Parser")
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return errors.Wrapf(err, "reading %s", src)
	}

	tree, err := parser.Parse(src, data)
	if err != nil {
		return errors.Wrapf(err, "parsing %s", src)
	}

	ir, diags, err := codegen.GenModule(tree, codegen.Options{
		ModuleName: filepath.Base(src),
		Verbose:    verbose,
	})
	if diags != nil {
		for _, d := range diags.All() {
			fmt.Fprintln(os.Stderr, d.String())
		}
	}
	if err != nil {
		return errors.Wrapf(err, "compiling %s", src)
	}

	if err := os.WriteFile(out, []byte(ir), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	return nil
}
