package hub

import "strings"

// RouterFunc implements Router for simple route functions.
type RouterFunc func(*Msg)

func (r RouterFunc) Route(m *Msg) { r(m) }

// filter wraps a router and forwards only messages whose subject passes ok.
type filter struct {
	Router
	ok func(subj string) bool
}

func (f *filter) Route(m *Msg) {
	if f.ok(m.Subj) {
		f.Router.Route(m)
	}
}

// NewMatchFilter returns a router forwarding to r only subjects that equal
// one of subjs.
func NewMatchFilter(r Router, subjs ...string) Router {
	return &filter{r, func(subj string) bool {
		for _, s := range subjs {
			if subj == s {
				return true
			}
		}
		return false
	}}
}

// NewPrefixFilter returns a router forwarding to r only subjects that start
// with one of prefixes.
func NewPrefixFilter(r Router, prefixes ...string) Router {
	return &filter{r, func(subj string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(subj, p) {
				return true
			}
		}
		return false
	}}
}

// Routers fans incoming messages out to all its routers.
type Routers []Router

func (rs Routers) Route(m *Msg) {
	for _, r := range rs {
		r.Route(m)
	}
}
