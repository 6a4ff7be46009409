package store

import "strings"

// QueryBuilder rewrites queries written with ? placeholders for a dialect
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a QueryBuilder for the given dialect
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build replaces each ? with the dialect's placeholder.
//
//	input:    "SELECT id FROM dungeons WHERE seed = ? AND width = ?"
//	SQLite:   unchanged
//	Postgres: "SELECT id FROM dungeons WHERE seed = $1 AND width = $2"
func (qb *QueryBuilder) Build(query string) string {
	if qb.dialect.Placeholder(1) == "?" {
		return query
	}

	var sb strings.Builder
	position := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			sb.WriteString(qb.dialect.Placeholder(position))
			position++
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// BuildWithReturning is Build plus a RETURNING clause when the dialect
// cannot report the inserted id otherwise.
func (qb *QueryBuilder) BuildWithReturning(query, column string) string {
	converted := qb.Build(query)
	if !qb.dialect.SupportsLastInsertID() {
		converted += qb.dialect.ReturningClause(column)
	}
	return converted
}
