// Command step compiles express schemas and works with step exchange files.
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mb0/step/graph"
	"github.com/mb0/step/p21"
	"github.com/mb0/step/repo"
)

// Config holds the optional step.toml project settings. Flags take precedence
// over the config file.
type Config struct {
	SchemaDirs []string `toml:"schema_dirs"`
	Addr       string   `toml:"addr"`
}

var (
	conf    Config
	cfgPath string
	dirArgs []string
)

var rootCmd = &cobra.Command{
	Use:   "step",
	Short: "step compiles express schemas and reads step exchange files",
	Long: `step is a schema compiler and exchange file tool for iso 10303.

It parses express schemas, resolves exchange files against them into an
instance graph and can serve the resolved models to websocket clients.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return readConf()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "config file (default step.toml)")
	pf.StringArrayVarP(&dirArgs, "dir", "d", nil, "schema directory, can be repeated")
}

func readConf() error {
	path := cfgPath
	if path == "" {
		if _, err := os.Stat("step.toml"); err != nil {
			return nil
		}
		path = "step.toml"
	}
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

func schemaDirs() []string {
	if len(dirArgs) > 0 {
		return dirArgs
	}
	if len(conf.SchemaDirs) > 0 {
		return conf.SchemaDirs
	}
	return []string{"."}
}

// loadRepo scans the configured schema directories. Scan problems are only
// warnings, commands work with whatever loaded cleanly.
func loadRepo() *repo.Repo {
	r := repo.New(schemaDirs()...)
	if err := r.Scan(); err != nil {
		logrus.Warnf("schema scan: %v", err)
	}
	return r
}

// findSchema returns the repo file for arg, which is either a path to an
// express file or the name of a schema found in the configured directories.
func findSchema(r *repo.Repo, arg string) (*repo.File, error) {
	if fi, err := os.Stat(arg); err == nil && !fi.IsDir() {
		return r.Load(arg)
	}
	return r.Find(arg)
}

// loadModel reads a step exchange file and resolves it against the schema
// named by arg, falling back to the file schema header. The graph may be
// partial when diagnostics are returned.
func loadModel(r *repo.Repo, path, schemaArg string) (*graph.Graph, []error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, []error{errors.Wrapf(err, "open exchange file %s", path)}
	}
	defer f.Close()
	x, err := p21.Read(f, filepath.Base(path))
	errs := listErrs(err)
	if x == nil {
		return nil, errs
	}
	if schemaArg == "" {
		schemaArg = headerSchema(x)
		if schemaArg == "" {
			return nil, append(errs, errors.New("no schema argument and no file schema header"))
		}
	}
	sf, err := findSchema(r, schemaArg)
	if err != nil {
		return nil, append(errs, err)
	}
	g, err := graph.Resolve(sf.Reg, x)
	return g, append(errs, listErrs(err)...)
}

// headerSchema returns the first governing schema name, without the optional
// version object suffix as in 'AUTOMOTIVE_DESIGN { 1 0 10303 214 ... }'.
func headerSchema(x *p21.Exchange) string {
	if len(x.Header.Schemas) == 0 {
		return ""
	}
	name := x.Header.Schemas[0]
	if i := strings.IndexAny(name, " {"); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func listErrs(err error) []error {
	if err == nil {
		return nil
	}
	if m, ok := err.(*multierror.Error); ok {
		return m.Errors
	}
	return []error{err}
}
