package log

import "fmt"

type TB interface {
	Errorf(string, ...interface{})
	Fatalf(string, ...interface{})
	Logf(string, ...interface{})
	Helper()
}

// Testing is a logger that forwards to a testing.T or testing.B.
type Testing struct {
	TB
	Tags []interface{}
}

func (l *Testing) Debug(m string, s ...interface{}) {
	l.Helper()
	l.Logf("DEB %s%s", m, tfmt(s, l.Tags))
}
func (l *Testing) Error(m string, s ...interface{}) {
	l.Helper()
	l.Errorf("ERR %s%s", m, tfmt(s, l.Tags))
}
func (l *Testing) Crit(m string, s ...interface{}) {
	l.Helper()
	l.Fatalf("CRI %s%s", m, tfmt(s, l.Tags))
}
func (l *Testing) With(tags ...interface{}) Logger {
	t := make([]interface{}, 0, len(tags)+len(l.Tags))
	t = append(t, tags...)
	t = append(t, l.Tags...)
	return &Testing{l.TB, t}
}

func tfmt(all ...[]interface{}) string {
	var res string
	for _, tags := range all {
		for i, v := range tags {
			if i%2 == 0 {
				res += " "
			} else {
				res += "="
			}
			res += fmt.Sprint(v)
		}
	}
	return res
}
