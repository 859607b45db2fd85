package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mb0/step/gen/gengo"
	"github.com/mb0/step/schema"
)

var (
	genOut string
	genPkg string
)

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "generate code for compiled schemas",
}

var genGoCmd = &cobra.Command{
	Use:   "go <file.exp|name>...",
	Short: "generate go bindings",
	Long: `gen go writes one go package per schema below the output directory.
A file argument generates all schemas it declares, a name argument only the
named schema while its imports still resolve to their own packages.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := loadRepo()
		pkgs := gengo.DefaultPkgs()
		var targets []*schema.SchemaDef
		for _, arg := range args {
			f, err := findSchema(r, arg)
			if err != nil {
				return err
			}
			sel := f.Reg.Schemas
			if fi, err := os.Stat(arg); err != nil || fi.IsDir() {
				sel = []*schema.SchemaDef{f.Reg.Schema(arg)}
			}
			for _, s := range f.Reg.Schemas {
				if _, ok := pkgs[s.Name]; !ok {
					pkgs[s.Name] = pkgPath(s.Name)
				}
			}
			targets = append(targets, sel...)
		}
		for _, s := range targets {
			c := gengo.NewCtxPkgs(s.Name, pkgs[s.Name], pkgs)
			dir := filepath.Join(genOut, s.Name)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.Wrapf(err, "create output dir %s", dir)
			}
			fname := filepath.Join(dir, s.Name+".go")
			if err := gengo.WriteFile(c, fname, s); err != nil {
				return err
			}
			fmt.Println(fname)
		}
		return nil
	},
}

// pkgPath returns the import path a schema package is generated under.
func pkgPath(name string) string {
	if genPkg == "" {
		return name
	}
	return path.Join(genPkg, name)
}

func init() {
	genGoCmd.Flags().StringVarP(&genOut, "out", "o", ".", "output directory")
	genGoCmd.Flags().StringVarP(&genPkg, "pkg", "p", "",
		"import path prefix for the generated packages")
	genCmd.AddCommand(genGoCmd)
	rootCmd.AddCommand(genCmd)
}
