package hub

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/mb0/step/graph"
	"github.com/mb0/step/repo"
	"github.com/mb0/step/schema"
)

// ModelService answers schema and instance queries over a repository of
// compiled schemas and a store of named resolved graphs.
//
// Subjects are plain words with space separated arguments in the message body:
//
//	schemas            list schema versions and loaded graph names
//	entity <name>      entity definition, name may be schema qualified
//	inst [g] #id       attribute values of one instance
//	backrefs [g] #id   inverse references to one instance
//	find [g] <entity>  ids of all instances of an entity
//
// The graph argument may be left out when exactly one graph is loaded. Failed
// requests reply with an ErrRes body.
type ModelService struct {
	Repo *repo.Repo

	mu     sync.RWMutex
	graphs map[string]*graph.Graph
}

// NewModelService returns a model service over the given repository.
func NewModelService(r *repo.Repo) *ModelService {
	return &ModelService{Repo: r, graphs: make(map[string]*graph.Graph)}
}

// SetGraph adds or replaces a resolved graph under name.
func (s *ModelService) SetGraph(name string, g *graph.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[name] = g
}

// Graph returns the graph loaded under name, or nil.
func (s *ModelService) Graph(name string) *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graphs[name]
}

// Services returns the subject map for this service.
func (s *ModelService) Services() Services {
	return Services{
		"schemas":  ServiceFunc(s.schemas),
		"entity":   ServiceFunc(s.entity),
		"inst":     ServiceFunc(s.inst),
		"backrefs": ServiceFunc(s.backrefs),
		"find":     ServiceFunc(s.find),
	}
}

// ErrRes is the error reply body sent for failed requests.
type ErrRes struct {
	Err string `json:"err"`
}

type SchemasRes struct {
	Schemas repo.Manifest `json:"schemas"`
	Graphs  []string      `json:"graphs,omitempty"`
}

type AttrRes struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Opt  bool   `json:"opt,omitempty"`
	Of   string `json:"of,omitempty"`
}

type InvRes struct {
	Name   string `json:"name"`
	Target string `json:"target"`
	Attr   string `json:"attr"`
}

type EntityRes struct {
	Schema   string    `json:"schema"`
	Name     string    `json:"name"`
	Abstract bool      `json:"abstract,omitempty"`
	Supers   []string  `json:"supers,omitempty"`
	Attrs    []AttrRes `json:"attrs,omitempty"`
	Inverses []InvRes  `json:"inverses,omitempty"`
}

type InstRes struct {
	Graph string                 `json:"graph"`
	ID    int64                  `json:"id"`
	Tags  []string               `json:"tags"`
	Attrs map[string]interface{} `json:"attrs"`
}

type BackrefsRes struct {
	Graph string             `json:"graph"`
	ID    int64              `json:"id"`
	Refs  map[string][]int64 `json:"refs"`
}

type FindRes struct {
	Graph  string  `json:"graph"`
	Entity string  `json:"entity"`
	IDs    []int64 `json:"ids"`
}

func (s *ModelService) schemas(m *Msg) interface{} {
	res := SchemasRes{Schemas: s.Repo.Versions()}
	s.mu.RLock()
	for name := range s.graphs {
		res.Graphs = append(res.Graphs, name)
	}
	s.mu.RUnlock()
	sort.Strings(res.Graphs)
	return res
}

func (s *ModelService) entity(m *Msg) interface{} {
	name := strings.TrimSpace(string(m.Raw))
	if name == "" {
		return ErrRes{"entity name required"}
	}
	e, err := s.findEntity(name)
	if err != nil {
		return ErrRes{err.Error()}
	}
	res := EntityRes{Schema: e.Schema.Name, Name: e.Name, Abstract: e.Abstract}
	for _, sup := range e.Supers {
		res.Supers = append(res.Supers, sup.Schema.Name+"."+sup.Name)
	}
	for _, a := range e.AllAttrs {
		ar := AttrRes{Name: a.Name, Type: schema.RefString(a.Type), Opt: a.Optional}
		if a.Owner != e {
			ar.Of = a.Owner.Name
		}
		res.Attrs = append(res.Attrs, ar)
	}
	for _, iv := range e.Inverses {
		res.Inverses = append(res.Inverses, InvRes{
			Name:   iv.Name,
			Target: iv.Target.Schema.Name + "." + iv.Target.Name,
			Attr:   iv.Attr.Name,
		})
	}
	return res
}

func (s *ModelService) inst(m *Msg) interface{} {
	g, gname, args, err := s.pickGraph(fields(m), 1)
	if err != nil {
		return ErrRes{err.Error()}
	}
	in, err := findInst(g, args)
	if err != nil {
		return ErrRes{err.Error()}
	}
	res := InstRes{Graph: gname, ID: in.ID, Tags: in.Tags,
		Attrs: make(map[string]interface{}, len(in.Slots))}
	for _, sl := range in.Slots {
		res.Attrs[sl.Attr.Name] = graph.JSON(sl.Val)
	}
	return res
}

func (s *ModelService) backrefs(m *Msg) interface{} {
	g, gname, args, err := s.pickGraph(fields(m), 1)
	if err != nil {
		return ErrRes{err.Error()}
	}
	in, err := findInst(g, args)
	if err != nil {
		return ErrRes{err.Error()}
	}
	res := BackrefsRes{Graph: gname, ID: in.ID, Refs: make(map[string][]int64)}
	for _, def := range in.Defs {
		for _, sup := range def.Closure {
			for _, iv := range sup.Inverses {
				if _, ok := res.Refs[iv.Name]; ok {
					continue
				}
				refs := in.Backrefs(iv.Name)
				ids := make([]int64, 0, len(refs))
				for _, r := range refs {
					ids = append(ids, r.ID)
				}
				res.Refs[iv.Name] = ids
			}
		}
	}
	return res
}

func (s *ModelService) find(m *Msg) interface{} {
	g, gname, args, err := s.pickGraph(fields(m), 1)
	if err != nil {
		return ErrRes{err.Error()}
	}
	if len(args) != 1 {
		return ErrRes{"entity name required"}
	}
	name := strings.ToLower(args[0])
	res := FindRes{Graph: gname, Entity: name, IDs: make([]int64, 0, 8)}
	for _, in := range g.List {
		if in.Is(name) {
			res.IDs = append(res.IDs, in.ID)
		}
	}
	return res
}

// findEntity resolves a plain or schema qualified entity name over all loaded
// schema files.
func (s *ModelService) findEntity(name string) (*schema.EntityDef, error) {
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		f, err := s.Repo.Find(name[:idx])
		if err != nil {
			return nil, err
		}
		sd := f.Reg.Schema(name[:idx])
		if e := sd.Entity(name[idx+1:]); e != nil {
			return e, nil
		}
		return nil, errors.Errorf("entity %s not found", name)
	}
	for _, f := range s.Repo.Files() {
		if e := f.Reg.Entity(name); e != nil {
			return e, nil
		}
	}
	return nil, errors.Errorf("entity %s not found", name)
}

func (s *ModelService) pickGraph(args []string, want int) (*graph.Graph, string, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(args) > want {
		name := args[0]
		g := s.graphs[name]
		if g == nil {
			return nil, "", nil, errors.Errorf("no graph named %s", name)
		}
		return g, name, args[1:], nil
	}
	if len(s.graphs) == 1 {
		for name, g := range s.graphs {
			return g, name, args, nil
		}
	}
	return nil, "", nil, errors.New("graph name required")
}

func findInst(g *graph.Graph, args []string) (*graph.Instance, error) {
	if len(args) != 1 || !strings.HasPrefix(args[0], "#") {
		return nil, errors.New("instance #id required")
	}
	id, err := strconv.ParseInt(args[0][1:], 10, 64)
	if err != nil {
		return nil, errors.Errorf("invalid instance id %s", args[0])
	}
	in := g.Instance(id)
	if in == nil {
		return nil, errors.Errorf("no instance #%d", id)
	}
	if len(in.Defs) == 0 {
		return nil, errors.Errorf("instance #%d unresolved", id)
	}
	return in, nil
}

func fields(m *Msg) []string {
	if len(m.Raw) > 0 {
		return strings.Fields(string(m.Raw))
	}
	if s, ok := m.Data.(string); ok {
		return strings.Fields(s)
	}
	return nil
}
