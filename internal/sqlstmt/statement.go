package sqlstmt

import (
	"fmt"
	"strings"
)

// Where renders an AND-conjunction over attrs: "col=value" for present values
// and "col IS NULL" for absent ones. An empty map renders as "".
func Where(attrs *Attributes) string {
	if attrs == nil || attrs.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, attrs.Len())
	for col, val := range attrs.All() {
		if val == Null {
			parts = append(parts, col+" IS NULL")
			continue
		}
		parts = append(parts, col+"="+val)
	}
	return strings.Join(parts, " AND ")
}

// Assignments renders the SET list of an UPDATE.
func Assignments(attrs *Attributes) string {
	parts := make([]string, 0, attrs.Len())
	for col, val := range attrs.All() {
		parts = append(parts, col+"="+val)
	}
	return strings.Join(parts, ",")
}

func whereClause(where *Attributes) string {
	if w := Where(where); w != "" {
		return " WHERE " + w
	}
	return ""
}

// Insert renders an INSERT of attrs into table.
func Insert(table string, attrs *Attributes) string {
	return fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)", table, attrs.ColumnList(), attrs.ValueList())
}

// Update renders an UPDATE of table assigning set, filtered by where.
func Update(table string, set, where *Attributes) string {
	return fmt.Sprintf("UPDATE %s SET %s%s", table, Assignments(set), whereClause(where))
}

// Delete renders a DELETE from table filtered by where.
func Delete(table string, where *Attributes) string {
	return fmt.Sprintf("DELETE FROM %s%s", table, whereClause(where))
}

// Select renders a SELECT of columns from source filtered by where.
func Select(columns, source string, where *Attributes) string {
	return fmt.Sprintf("SELECT %s FROM %s%s", columns, source, whereClause(where))
}

// Quote renders s as a single-quoted SQL literal, doubling embedded quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
