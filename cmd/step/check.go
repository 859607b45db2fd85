package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var checkSchema string

var checkCmd = &cobra.Command{
	Use:   "check <file.step>",
	Short: "resolve an exchange file and report all diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, errs := loadModel(loadRepo(), args[0], checkSchema)
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "%v\n", e)
		}
		if len(errs) > 0 {
			return errors.Errorf("%d problems in %s", len(errs), args[0])
		}
		fmt.Printf("%s ok, %d instances\n", args[0], len(g.List))
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkSchema, "schema", "s", "",
		"schema name or express file, default is the file schema header")
	rootCmd.AddCommand(checkCmd)
}
