package crud

import (
	"fmt"
	"strings"
)

// Assignments collects the column = $n pairs of a partial UPDATE. Column names
// come from the patch type, never from request payloads.
type Assignments struct {
	cols []string
	args []interface{}
}

// Set records col only when val is non-nil.
func Set[V any](a *Assignments, col string, val *V) {
	if val == nil {
		return
	}
	a.cols = append(a.cols, col)
	a.args = append(a.args, *val)
}

func (a *Assignments) Empty() bool { return len(a.cols) == 0 }

func (a *Assignments) Len() int { return len(a.cols) }

// UpdateSQL renders "UPDATE table SET ... WHERE id = $1 RETURNING cols".
// The id argument must be passed first, followed by Args().
func (a *Assignments) UpdateSQL(table, returning string) string {
	parts := make([]string, len(a.cols))
	for i, col := range a.cols {
		parts[i] = fmt.Sprintf("%s = $%d", col, i+2)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 RETURNING %s", table, strings.Join(parts, ", "), returning)
}

// Args returns the collected values in column order.
func (a *Assignments) Args() []interface{} { return a.args }
