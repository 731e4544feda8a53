package choropleth

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// Chooser picks one of several labeled options. It returns the zero-based index of
// the chosen option, or an error when the choice was cancelled.
type Chooser interface {
	Choose(ctx context.Context, title string, options []string) (int, error)
}

// ChooserFunc adapts a function to the Chooser interface.
type ChooserFunc func(ctx context.Context, title string, options []string) (int, error)

// Choose implements Chooser.
func (f ChooserFunc) Choose(ctx context.Context, title string, options []string) (int, error) {
	return f(ctx, title, options)
}

// FirstColumn always picks the first option. It is the non-interactive default.
var FirstColumn Chooser = FixedColumn(0)

// FixedColumn always picks option i.
func FixedColumn(i int) Chooser {
	return ChooserFunc(func(context.Context, string, []string) (int, error) {
		return i, nil
	})
}

// SelectionTitle is the prompt shown when a table has more than one column.
func SelectionTitle(tableID string, n int) string {
	return fmt.Sprintf("Table %s has %d columns. Please select which column to render", tableID, n)
}

// SelectColumn returns the index of the column to render. A single-column table
// needs no choice; otherwise chooser is asked exactly once.
func SelectColumn(ctx context.Context, table *FetchedTable, tableID string, chooser Chooser) (int, error) {
	const op = "select column"

	if table == nil || len(table.Columns) == 0 {
		return 0, invalidArgument(op, "table %s has no columns", tableID)
	}
	n := len(table.Columns)
	if n == 1 {
		return 0, nil
	}
	if chooser == nil {
		return 0, selectionAborted(op, eris.New("table has several columns and no chooser was provided"))
	}
	if err := ctx.Err(); err != nil {
		return 0, selectionAborted(op, err)
	}

	options := make([]string, n)
	for i, c := range table.Columns {
		options[i] = c.Option()
	}

	idx, err := chooser.Choose(ctx, SelectionTitle(tableID, n), options)
	if err != nil {
		return 0, selectionAborted(op, err)
	}
	if idx < 0 || idx >= n {
		return 0, selectionAborted(op, eris.Errorf("chosen index %d out of range [0,%d)", idx, n))
	}
	return idx, nil
}
