package records

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
)

// SQLTable reads records from a content table. Result columns are mapped
// by name: id, site, language (or lang), tag, title, description, content,
// keywords (comma separated), priority, timestamp, link, path, image,
// hidden. Unknown columns are stored as node meta data. Only site and
// language are read while resolving; the other columns are parsed when
// the record is indexed, so a malformed value fails that record alone.
type SQLTable struct {
	name  string
	tag   string
	db    *sql.DB
	query string
}

func NewSQLTable(name, tag string, db *sql.DB, query string) *SQLTable {
	return &SQLTable{name: name, tag: tag, db: db, query: query}
}

func (s *SQLTable) Name() string { return s.name }

// sqlRecord is one raw result row.
type sqlRecord struct {
	cols []string
	vals []sql.NullString
}

func (r sqlRecord) column(names ...string) string {
	for i, col := range r.cols {
		for _, name := range names {
			if strings.EqualFold(col, name) && r.vals[i].Valid {
				return r.vals[i].String
			}
		}
	}
	return ""
}

func (s *SQLTable) Resolve(ctx context.Context, req queue.Request) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("querying records %s: %w", s.name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", s.name, err)
	}
	var items []any
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning record of %s: %w", s.name, err)
		}
		rec := sqlRecord{cols: cols, vals: vals}
		scope := config.DocumentConfig{Site: rec.column("site"), Language: rec.column("language", "lang")}
		ok, err := matches(scope, req)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, rec)
		}
	}
	return items, rows.Err()
}

func (s *SQLTable) Index(_ context.Context, element any, n *node.Node, req queue.Request) error {
	rec, ok := element.(sqlRecord)
	if !ok {
		return fmt.Errorf("sql records %s: unexpected element %T", s.name, element)
	}
	doc, err := documentFromColumns(rec.cols, rec.vals)
	if err != nil {
		return fmt.Errorf("records %s, id %q: %w", s.name, rec.column("id"), err)
	}
	return fill(doc, s.tag, n, req)
}

func documentFromColumns(cols []string, vals []sql.NullString) (config.DocumentConfig, error) {
	var doc config.DocumentConfig
	for i, col := range cols {
		if !vals[i].Valid {
			continue
		}
		v := vals[i].String
		switch strings.ToLower(col) {
		case "id":
			doc.ID = v
		case "site":
			doc.Site = v
		case "language", "lang":
			doc.Language = v
		case "tag":
			doc.Tag = v
		case "title":
			doc.Title = v
		case "description":
			doc.Description = v
		case "content":
			doc.Content = append(doc.Content, v)
		case "keywords":
			for _, k := range strings.Split(v, ",") {
				if k = strings.TrimSpace(k); k != "" {
					doc.Keywords = append(doc.Keywords, k)
				}
			}
		case "priority":
			p, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return doc, fmt.Errorf("column priority: %w", err)
			}
			doc.Priority = &p
		case "timestamp":
			ts, err := parseTimestamp(v)
			if err != nil {
				return doc, fmt.Errorf("column timestamp: %w", err)
			}
			doc.Timestamp = ts
		case "link":
			doc.Link = v
		case "path":
			doc.Path = v
		case "image":
			doc.Image = v
		case "hidden":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return doc, fmt.Errorf("column hidden: %w", err)
			}
			doc.Hidden = b
		default:
			if doc.Meta == nil {
				doc.Meta = make(map[string]any)
			}
			doc.Meta[col] = v
		}
	}
	return doc, nil
}

// parseTimestamp accepts RFC 3339 text or unix seconds.
func parseTimestamp(v string) (time.Time, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", v)
}
