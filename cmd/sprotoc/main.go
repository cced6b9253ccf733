// Copyright 2026 The sproto-go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// sprotoc compiles sproto schema text files to either a binary schema
// (the same format schema.LoadBinary reads) or a JSON dump of the
// resolved type catalog, for inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	outDir string
	format = formatValue("binary")
)

// formatValue is a pflag.Value so an invalid --format is rejected at flag
// parse time rather than deferred to RunE.
type formatValue string

func (f *formatValue) String() string { return string(*f) }
func (f *formatValue) Type() string   { return "string" }
func (f *formatValue) Set(s string) error {
	switch s {
	case "binary", "json":
		*f = formatValue(s)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want binary or json)", s)
	}
}

var _ pflag.Value = (*formatValue)(nil)

func main() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	compileCmd.Flags().VarP(&format, "format", "f", "Output format: binary or json")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sprotoc",
	Short: "sprotoc compiles sproto schema text into binary schemas or JSON catalogs",
	Long:  "sprotoc compiles sproto schema text into binary schemas or JSON catalogs",
}

var compileCmd = &cobra.Command{
	Use:   "compile <file.sproto>...",
	Short: "Compile one or more schema files",
	Long:  "Compile one or more schema files, writing one output file per input into the --out directory",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return compileFiles(args, outDir, format.String())
	},
}
