// Package sqlstore implements store.Store on database/sql for PostgreSQL
// and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store/sqlstore/migrations"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/database"
)

const (
	defaultChunkSize = 50
	idChunkSize      = 500
)

const nodeColumns = `n.id, n.site, n.domain, n.lang, n.tag, n.title, n.description, n.url, n.image,
n.image_source, n.content, n.set_keywords, n.priority, n."timestamp", n.meta_data, n.searchable, n.in_sitemap, n.active`

const wordColumns = `w.node_id, w.word, w.tag, w.lang, w.domain, w.site, w.priority, w.soundex, w.active`

// Store is the SQL backed index store.
type Store struct {
	db        *database.Client
	dialect   Dialect
	dialErr   error
	chunkSize int
	logger    *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithChunkSize sets how many rows one insert transaction carries.
func WithChunkSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// New binds a store to db. An unsupported driver is reported by every
// later call with ErrMissingAdapter.
func New(db *database.Client, opts ...Option) *Store {
	d, err := LookupDialect(db.Driver)
	s := &Store{
		db:        db,
		dialect:   d,
		dialErr:   err,
		chunkSize: defaultChunkSize,
		logger:    slog.Default().With("component", "sqlstore", "dialect", db.Driver),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Migrate creates the nodes and words tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if s.dialErr != nil {
		return s.dialErr
	}
	schema, err := migrations.FS.ReadFile(s.dialect.Name + ".sql")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	s.logger.Info("schema ready")
	return nil
}

func (s *Store) InsertBatch(ctx context.Context, nodes []store.NodeRow, words []store.WordRow) error {
	if s.dialErr != nil {
		return s.dialErr
	}
	for start := 0; start < len(nodes); start += s.chunkSize {
		chunk := nodes[start:min(start+s.chunkSize, len(nodes))]
		if err := s.db.InTx(ctx, func(tx *sql.Tx) error { return s.insertNodes(ctx, tx, chunk) }); err != nil {
			return fmt.Errorf("inserting nodes: %w", err)
		}
	}
	for start := 0; start < len(words); start += s.chunkSize {
		chunk := words[start:min(start+s.chunkSize, len(words))]
		if err := s.db.InTx(ctx, func(tx *sql.Tx) error { return s.insertWords(ctx, tx, chunk) }); err != nil {
			return fmt.Errorf("inserting words: %w", err)
		}
	}
	return nil
}

func (s *Store) insertNodes(ctx context.Context, tx *sql.Tx, rows []store.NodeRow) error {
	q := newQuery(s.dialect).write(`INSERT INTO nodes (id, site, domain, lang, tag, title, description, url, image,
image_source, content, set_keywords, match_text, priority, "timestamp", meta_data, searchable, in_sitemap, active) VALUES `)
	for i, n := range rows {
		if i > 0 {
			q.write(", ")
		}
		q.write("(",
			strings.Join([]string{
				q.arg(n.ID), q.arg(n.Site), q.arg(n.Domain), q.arg(n.Lang), q.arg(n.Tag),
				q.arg(n.Title), q.arg(n.Description), q.arg(n.URL), q.arg(n.Image), q.arg(n.ImageSource),
				q.arg(n.Content), q.arg(n.SetKeywords), q.arg(store.PhraseText(n)), q.arg(n.Priority), q.arg(unix(n.Timestamp)),
				q.arg(n.MetaData), q.arg(n.Searchable), q.arg(n.InSitemap), q.arg(false),
			}, ", "),
			")")
	}
	_, err := tx.ExecContext(ctx, q.String(), q.args...)
	return err
}

func (s *Store) insertWords(ctx context.Context, tx *sql.Tx, rows []store.WordRow) error {
	q := newQuery(s.dialect).write(`INSERT INTO words (node_id, word, tag, lang, domain, site, priority, soundex, active) VALUES `)
	for i, w := range rows {
		if i > 0 {
			q.write(", ")
		}
		q.write("(",
			strings.Join([]string{
				q.arg(w.NodeID), q.arg(w.Word), q.arg(w.Tag), q.arg(w.Lang), q.arg(w.Domain),
				q.arg(w.Site), q.arg(w.Priority), q.arg(w.Phonetic), q.arg(false),
			}, ", "),
			")")
	}
	_, err := tx.ExecContext(ctx, q.String(), q.args...)
	return err
}

// Activate deletes the served generation and promotes the inactive one
// inside a single transaction.
func (s *Store) Activate(ctx context.Context, domain string) error {
	if s.dialErr != nil {
		return s.dialErr
	}
	ph := s.dialect.Placeholder
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"words", "nodes"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE domain = %s AND active = %s", table, ph(1), ph(2)),
				domain, true); err != nil {
				return fmt.Errorf("dropping active %s: %w", table, err)
			}
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("UPDATE %s SET active = %s WHERE domain = %s AND active = %s", table, ph(1), ph(2), ph(3)),
				true, domain, false); err != nil {
				return fmt.Errorf("activating %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Store) RemoveInactive(ctx context.Context, domain string) error {
	if s.dialErr != nil {
		return s.dialErr
	}
	ph := s.dialect.Placeholder
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"words", "nodes"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE domain = %s AND active = %s", table, ph(1), ph(2)),
				domain, false); err != nil {
				return fmt.Errorf("removing inactive %s: %w", table, err)
			}
		}
		return nil
	})
}

// txKey carries the read transaction of a View for one store.
type txKey struct{ s *Store }

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// reader returns the View transaction bound to ctx, or the pool.
func (s *Store) reader(ctx context.Context) queryer {
	if tx, ok := ctx.Value(txKey{s}).(*sql.Tx); ok {
		return tx
	}
	return s.db.DB
}

// View runs fn inside one read-only transaction. Nested calls join the
// outer transaction.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.dialErr != nil {
		return s.dialErr
	}
	if _, ok := ctx.Value(txKey{s}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.DB.BeginTx(ctx, &s.dialect.ReadTx)
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{s}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// wordConditions renders the fuzzy word channel for every term.
func wordConditions(q *query, terms []store.WordTerm) {
	q.write("(")
	for i, t := range terms {
		if i > 0 {
			q.write(" OR ")
		}
		q.write("w.word = ", q.arg(t.Word), " OR w.word LIKE ", q.arg(escapeLike(t.Word)+"%"), ` ESCAPE '\'`)
		if t.Phonetic != "" {
			q.write(" OR w.soundex = ", q.arg(t.Phonetic))
		}
		if utf8.RuneCountInString(t.Word) > 5 {
			q.write(" OR w.word LIKE ", q.arg("%"+escapeLike(t.Word)+"%"), ` ESCAPE '\'`)
		}
	}
	q.write(")")
}

func scopeConditions(q *query, alias string, sc store.Scope) {
	q.write(alias, ".active = ", q.arg(true),
		" AND ", alias, ".domain = ", q.arg(sc.Domain),
		" AND ", alias, ".site = ", q.arg(sc.Site),
		" AND ", alias, ".lang = ", q.arg(sc.Lang))
}

// Candidates reads the nodes and their matched words in one View so both
// come from the same generation.
func (s *Store) Candidates(ctx context.Context, cq store.CandidateQuery) ([]store.Candidate, error) {
	var out []store.Candidate
	err := s.View(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.candidates(ctx, cq)
		return err
	})
	return out, err
}

func (s *Store) candidates(ctx context.Context, cq store.CandidateQuery) ([]store.Candidate, error) {
	q := newQuery(s.dialect).write("SELECT ", nodeColumns, " FROM nodes n WHERE ")
	scopeConditions(q, "n", cq.Scope)
	q.write(" AND n.searchable = ", q.arg(true))
	q.in("n.tag", cq.RequiredTags, false)
	q.in("n.tag", cq.DeniedTags, true)
	if cq.AdditionalWhere != "" {
		q.write(" AND (", cq.AdditionalWhere, ")")
	}
	if len(cq.Words) > 0 || len(cq.Phrases) > 0 {
		q.write(" AND (")
		if len(cq.Words) > 0 {
			q.write("n.id IN (SELECT w.node_id FROM words w WHERE ")
			scopeConditions(q, "w", cq.Scope)
			q.write(" AND ")
			wordConditions(q, cq.Words)
			q.write(")")
		}
		for i, p := range cq.Phrases {
			if i > 0 || len(cq.Words) > 0 {
				q.write(" OR ")
			}
			q.write("n.match_text LIKE ", q.arg("%"+escapeLike(p)+"%"), ` ESCAPE '\'`)
		}
		q.write(")")
	}
	q.write(" ORDER BY n.id")

	out, err := s.scanCandidates(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(cq.Words) == 0 || len(out) == 0 {
		return out, nil
	}

	index := make(map[string]int, len(out))
	ids := make([]string, len(out))
	for i, c := range out {
		index[c.Node.ID] = i
		ids[i] = c.Node.ID
	}
	for start := 0; start < len(ids); start += idChunkSize {
		chunk := ids[start:min(start+idChunkSize, len(ids))]
		matched, err := s.matchedWords(ctx, cq, chunk)
		if err != nil {
			return nil, err
		}
		for _, m := range matched {
			i := index[m.Row.NodeID]
			out[i].Words = append(out[i].Words, m)
		}
	}
	return out, nil
}

func (s *Store) scanCandidates(ctx context.Context, q *query) ([]store.Candidate, error) {
	rows, err := s.reader(ctx).QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var out []store.Candidate
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, store.Candidate{Node: n})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading candidates: %w", err)
	}
	return out, nil
}

func (s *Store) matchedWords(ctx context.Context, cq store.CandidateQuery, nodeIDs []string) ([]store.MatchedWord, error) {
	q := newQuery(s.dialect).write("SELECT ", wordColumns, " FROM words w WHERE ")
	scopeConditions(q, "w", cq.Scope)
	q.in("w.node_id", nodeIDs, false)
	q.write(" AND ")
	wordConditions(q, cq.Words)
	q.write(" ORDER BY w.node_id, w.word")

	rows, err := s.reader(ctx).QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("querying matched words: %w", err)
	}
	defer rows.Close()

	var out []store.MatchedWord
	for rows.Next() {
		var w store.WordRow
		if err := rows.Scan(&w.NodeID, &w.Word, &w.Tag, &w.Lang, &w.Domain, &w.Site, &w.Priority, &w.Phonetic, &w.Active); err != nil {
			return nil, fmt.Errorf("scanning word: %w", err)
		}
		out = append(out, store.MatchTerms(cq.Words, w)...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading matched words: %w", err)
	}
	return out, nil
}

func (s *Store) WordsWithPrefix(ctx context.Context, wq store.WordQuery) ([]store.WordStat, error) {
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	if wq.NodeIDs != nil && len(wq.NodeIDs) == 0 {
		return nil, nil
	}
	var out []store.WordStat
	err := s.View(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.wordsWithPrefix(ctx, wq)
		return err
	})
	return out, err
}

func (s *Store) wordsWithPrefix(ctx context.Context, wq store.WordQuery) ([]store.WordStat, error) {
	chunks := [][]string{nil}
	if wq.NodeIDs != nil {
		chunks = chunks[:0]
		for start := 0; start < len(wq.NodeIDs); start += idChunkSize {
			chunks = append(chunks, wq.NodeIDs[start:min(start+idChunkSize, len(wq.NodeIDs))])
		}
	}

	merged := make(map[string]*store.WordStat)
	for _, chunk := range chunks {
		q := newQuery(s.dialect).write(
			"SELECT w.word, MAX(w.priority), MIN(w.soundex), COUNT(DISTINCT w.node_id) FROM words w ",
			"JOIN nodes n ON n.id = w.node_id WHERE ")
		scopeConditions(q, "w", wq.Scope)
		q.write(" AND n.active = ", q.arg(true), " AND n.searchable = ", q.arg(true),
			" AND w.word LIKE ", q.arg(escapeLike(wq.Prefix)+"%"), ` ESCAPE '\'`)
		q.in("w.node_id", chunk, false)
		q.write(" GROUP BY w.word ORDER BY 2 DESC, w.word")
		if wq.Limit > 0 {
			q.write(" LIMIT ", q.arg(wq.Limit))
		}
		if err := s.collectWordStats(ctx, q, merged); err != nil {
			return nil, err
		}
	}

	out := make([]store.WordStat, 0, len(merged))
	for _, st := range merged {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Word < out[j].Word
	})
	if wq.Limit > 0 && len(out) > wq.Limit {
		out = out[:wq.Limit]
	}
	return out, nil
}

func (s *Store) collectWordStats(ctx context.Context, q *query, into map[string]*store.WordStat) error {
	rows, err := s.reader(ctx).QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return fmt.Errorf("querying word prefixes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st store.WordStat
		if err := rows.Scan(&st.Word, &st.Priority, &st.Phonetic, &st.Nodes); err != nil {
			return fmt.Errorf("scanning word stat: %w", err)
		}
		if prev, ok := into[st.Word]; ok {
			prev.Priority = max(prev.Priority, st.Priority)
			prev.Nodes += st.Nodes
			continue
		}
		into[st.Word] = &st
	}
	return rows.Err()
}

func (s *Store) DistinctTags(ctx context.Context, sc store.Scope) ([]string, error) {
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	q := newQuery(s.dialect).write("SELECT DISTINCT n.tag FROM nodes n WHERE ")
	scopeConditions(q, "n", sc)
	q.write(" AND n.searchable = ", q.arg(true), " ORDER BY n.tag")

	rows, err := s.reader(ctx).QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *Store) SitemapEntries(ctx context.Context, sc store.Scope) ([]store.SitemapEntry, error) {
	if s.dialErr != nil {
		return nil, s.dialErr
	}
	q := newQuery(s.dialect).write(`SELECT n.url, n."timestamp", n.priority FROM nodes n WHERE `)
	scopeConditions(q, "n", sc)
	q.write(" AND n.in_sitemap = ", q.arg(true), " AND n.url <> '' ORDER BY n.url")

	rows, err := s.reader(ctx).QueryContext(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("querying sitemap: %w", err)
	}
	defer rows.Close()
	var out []store.SitemapEntry
	for rows.Next() {
		var e store.SitemapEntry
		var ts int64
		if err := rows.Scan(&e.URL, &ts, &e.Priority); err != nil {
			return nil, fmt.Errorf("scanning sitemap entry: %w", err)
		}
		e.Timestamp = fromUnix(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanNode(rows *sql.Rows) (store.NodeRow, error) {
	var n store.NodeRow
	var ts int64
	err := rows.Scan(&n.ID, &n.Site, &n.Domain, &n.Lang, &n.Tag, &n.Title, &n.Description, &n.URL, &n.Image,
		&n.ImageSource, &n.Content, &n.SetKeywords, &n.Priority, &ts, &n.MetaData, &n.Searchable, &n.InSitemap, &n.Active)
	if err != nil {
		return n, fmt.Errorf("scanning node: %w", err)
	}
	n.Timestamp = fromUnix(ts)
	return n, nil
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
