// Package graphpg exports compiled schemas and resolved instance graphs to
// postgres: one pg schema per analyzed schema, one table per entity, bulk
// loading through the copy protocol.
package graphpg

import (
	"strings"

	"github.com/jackc/pgx"
	"github.com/pkg/errors"

	"github.com/mb0/step/graph"
	"github.com/mb0/step/schema"
)

type DB interface {
	Begin() (*pgx.Tx, error)
}

type C interface {
	Query(string, ...interface{}) (*pgx.Rows, error)
	QueryRow(string, ...interface{}) *pgx.Row
	Exec(string, ...interface{}) (pgx.CommandTag, error)
	CopyFrom(pgx.Identifier, []string, pgx.CopyFromSource) (int, error)
}

func Open(dsn string, logger pgx.Logger) (*pgx.ConnPool, error) {
	conf, err := pgx.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parsing postgres dsn")
	}
	if logger != nil {
		conf.Logger = logger
		conf.LogLevel = pgx.LogLevelWarn
	}
	db, err := pgx.NewConnPool(pgx.ConnPoolConfig{ConnConfig: conf})
	if err != nil {
		return nil, errors.Wrap(err, "creating pgx connection pool")
	}
	_, err = db.Exec("SELECT 1")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "opening first pgx connection")
	}
	return db, nil
}

func WithTx(db DB, f func(C) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = f(tx)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// CreateSchemas drops and recreates the pg schemas for all analyzed schemas
// in the registry, with enum types and one table per entity.
func CreateSchemas(db *pgx.ConnPool, reg *schema.Registry) error {
	return WithTx(db, func(tx C) error {
		err := dropSchemas(tx, reg)
		if err != nil {
			return err
		}
		for _, s := range reg.Schemas {
			_, err = tx.Exec("CREATE SCHEMA " + s.Name)
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, t := range s.Types {
				if t.Kind != schema.Enum {
					continue
				}
				b.Reset()
				WriteEnum(&b, t)
				_, err = tx.Exec(b.String())
				if err != nil {
					return err
				}
			}
			for _, e := range s.Entities {
				b.Reset()
				WriteTable(&b, e)
				_, err = tx.Exec(b.String())
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func DropSchemas(db *pgx.ConnPool, reg *schema.Registry) error {
	return WithTx(db, func(tx C) error {
		return dropSchemas(tx, reg)
	})
}

func dropSchemas(tx C, reg *schema.Registry) error {
	for i := len(reg.Schemas) - 1; i >= 0; i-- {
		s := reg.Schemas[i]
		_, err := tx.Exec("DROP SCHEMA IF EXISTS " + s.Name + " CASCADE")
		if err != nil {
			return err
		}
	}
	return nil
}

// CopyGraph bulk-loads all instances of the graph. Each instance lands in the
// table of its leaf entity with the full inherited column list.
func CopyGraph(db *pgx.ConnPool, g *graph.Graph) error {
	byLeaf := make(map[*schema.EntityDef][]*graph.Instance)
	for _, in := range g.List {
		leaf := in.Leaf()
		if leaf == nil {
			return errors.Errorf("instance #%d has no leaf entity", in.ID)
		}
		byLeaf[leaf] = append(byLeaf[leaf], in)
	}
	return WithTx(db, func(tx C) error {
		for _, s := range g.Reg.Schemas {
			for _, e := range s.Entities {
				list := byLeaf[e]
				if len(list) == 0 {
					continue
				}
				src := &graphCopySrc{list: list, attrs: e.AllAttrs}
				_, err := tx.CopyFrom(pgx.Identifier{s.Name, e.Name},
					entityColumns(e), src)
				if err != nil {
					return errors.Wrapf(err, "copy %s.%s", s.Name, e.Name)
				}
			}
		}
		return nil
	})
}

type graphCopySrc struct {
	list  []*graph.Instance
	attrs []*schema.AttrDef
	nxt   int
	err   error
}

func (c *graphCopySrc) Next() bool {
	c.nxt++
	return c.err == nil && c.nxt <= len(c.list)
}

func (c *graphCopySrc) Values() ([]interface{}, error) {
	in := c.list[c.nxt-1]
	res := make([]interface{}, 0, len(c.attrs)+1)
	res = append(res, in.ID)
	for _, a := range c.attrs {
		v, ok := in.Attr(a.Name)
		if !ok {
			c.err = errors.Errorf("instance #%d misses attribute %s", in.ID, a.Name)
			return nil, c.err
		}
		pv, err := pgValue(a.Type, v)
		if err != nil {
			c.err = err
			return nil, err
		}
		res = append(res, pv)
	}
	return res, nil
}

func (c *graphCopySrc) Err() error {
	return c.err
}

func entityColumns(e *schema.EntityDef) []string {
	res := make([]string, 0, len(e.AllAttrs)+1)
	res = append(res, "id")
	for _, a := range e.AllAttrs {
		res = append(res, a.Name)
	}
	return res
}
