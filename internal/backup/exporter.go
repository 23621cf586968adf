package backup

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"regexp"

	"github.com/lib/pq"
)

// Exporter streams a table as newline-delimited JSON.
type Exporter interface {
	Export(ctx context.Context, table string, w io.Writer) (int64, error)
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type SQLExporter struct {
	db     *sql.DB
	schema string
}

func NewSQLExporter(db *sql.DB) *SQLExporter {
	return &SQLExporter{db: db, schema: "tenant"}
}

func (e *SQLExporter) Export(ctx context.Context, table string, w io.Writer) (int64, error) {
	if !tableName.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	query := fmt.Sprintf("SELECT row_to_json(t)::text FROM %s.%s t",
		pq.QuoteIdentifier(e.schema), pq.QuoteIdentifier(table))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("export %s: %w", table, err)
	}
	defer rows.Close()

	buf := bufio.NewWriter(w)
	var count int64
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return count, err
		}
		if _, err := buf.WriteString(line); err != nil {
			return count, err
		}
		if err := buf.WriteByte('\n'); err != nil {
			return count, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, err
	}
	return count, buf.Flush()
}
