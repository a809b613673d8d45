package history

import "errors"

var (
	// ErrMarkupShape means a page is missing an expected marker or its rows
	// are not shaped like record rows.
	ErrMarkupShape = errors.New("unexpected markup shape")
	// ErrFieldFormat means a field did not parse under its fixed layout.
	ErrFieldFormat = errors.New("unexpected field format")
)
