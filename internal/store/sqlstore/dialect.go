package sqlstore

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

// Dialect captures the few places the postgres and sqlite SQL differ.
type Dialect struct {
	Name        string
	Placeholder func(n int) string
	// ReadTx opens the snapshot a View reads from.
	ReadTx sql.TxOptions
}

var dialects = map[string]Dialect{
	"postgres": {
		Name:        "postgres",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		ReadTx:      sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	},
	"sqlite": {
		Name:        "sqlite",
		Placeholder: func(int) string { return "?" },
		ReadTx:      sql.TxOptions{ReadOnly: true},
	},
}

// LookupDialect returns the dialect for a database/sql driver name.
func LookupDialect(driver string) (Dialect, error) {
	d, ok := dialects[driver]
	if !ok {
		return Dialect{}, apperrors.Newf(apperrors.ErrMissingAdapter, http.StatusNotImplemented, "no index queries for driver %q", driver)
	}
	return d, nil
}

// query accumulates SQL text and its positional arguments.
type query struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func newQuery(d Dialect) *query {
	return &query{d: d}
}

func (q *query) write(parts ...string) *query {
	for _, p := range parts {
		q.sb.WriteString(p)
	}
	return q
}

// arg binds v and returns its placeholder.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return q.d.Placeholder(len(q.args))
}

func (q *query) in(column string, values []string, negate bool) {
	if len(values) == 0 {
		return
	}
	ph := make([]string, len(values))
	for i, v := range values {
		ph[i] = q.arg(v)
	}
	op := " IN ("
	if negate {
		op = " NOT IN ("
	}
	q.write(" AND ", column, op, strings.Join(ph, ", "), ")")
}

func (q *query) String() string {
	return q.sb.String()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
