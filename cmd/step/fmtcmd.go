package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mb0/step/graph"
)

var fmtSchema string

var fmtCmd = &cobra.Command{
	Use:   "fmt <file.step>",
	Short: "rewrite an exchange file in canonical form",
	Long: `fmt resolves an exchange file and writes it back to stdout with
instances in id order, upper case keywords and normalized literals.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, errs := loadModel(loadRepo(), args[0], fmtSchema)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "%v\n", e)
			}
			return errors.Errorf("%s does not resolve", args[0])
		}
		return graph.Write(os.Stdout, g)
	},
}

func init() {
	fmtCmd.Flags().StringVarP(&fmtSchema, "schema", "s", "",
		"schema name or express file, default is the file schema header")
	rootCmd.AddCommand(fmtCmd)
}
