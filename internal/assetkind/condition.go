package assetkind

import (
	"strings"
)

// Condition renders the SQL predicate matching kind against column, using
// "?" placeholders. It mirrors the Is predicates so that filtering in the
// database and in memory agree.
func (c *Classifier) Condition(kind Kind, column string) (string, []interface{}) {
	switch kind {
	case Movie:
		return prefixOrIn(column, "video%", c.movieList)
	case Audio:
		return prefixOrIn(column, "audio%", c.audioList)
	case PDF:
		return in(column, c.pdfList)
	case Image:
		return in(column, c.imageList)
	case Other:
		excluded := make([]string, 0, len(c.movieList)+len(c.audioList)+len(c.imageList))
		excluded = append(excluded, c.movieList...)
		excluded = append(excluded, c.audioList...)
		excluded = append(excluded, c.imageList...)
		sql := column + " NOT LIKE ? AND " + column + " NOT LIKE ?"
		args := []interface{}{"audio%", "video%"}
		if len(excluded) > 0 {
			sql += " AND " + column + " NOT IN (" + placeholders(len(excluded)) + ")"
			args = append(args, toArgs(excluded)...)
		}
		return sql, args
	default:
		return "FALSE", nil
	}
}

// Conditions ORs the conditions of several kinds together.
func (c *Classifier) Conditions(kinds []Kind, column string) (string, []interface{}) {
	if len(kinds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(kinds))
	args := make([]interface{}, 0)
	for _, kind := range kinds {
		sql, kindArgs := c.Condition(kind, column)
		parts = append(parts, "("+sql+")")
		args = append(args, kindArgs...)
	}
	return strings.Join(parts, " OR "), args
}

func prefixOrIn(column, pattern string, values []string) (string, []interface{}) {
	if len(values) == 0 {
		return column + " LIKE ?", []interface{}{pattern}
	}
	sql := column + " LIKE ? OR " + column + " IN (" + placeholders(len(values)) + ")"
	return sql, append([]interface{}{pattern}, toArgs(values)...)
}

func in(column string, values []string) (string, []interface{}) {
	if len(values) == 0 {
		return "FALSE", nil
	}
	return column + " IN (" + placeholders(len(values)) + ")", toArgs(values)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	return args
}
