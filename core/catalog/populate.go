package catalog

import (
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core"
)

// Populate selects which relations are loaded along with a record.
// Each variant maps to one fixed query shape.
type Populate int

const (
	PopulateNone Populate = iota
	PopulateChapters
	PopulateQuestions
	PopulateNotes
)

var populateNames = map[string]Populate{
	"":          PopulateNone,
	"chapters":  PopulateChapters,
	"questions": PopulateQuestions,
	"notes":     PopulateNotes,
}

// ParsePopulate parses the `populate` query param.
func ParsePopulate(s string) (Populate, error) {
	p, ok := populateNames[core.CleanString(s, true /* lower */)]
	if !ok {
		return PopulateNone, core.NewValidationError(
			errors.New("invalid populate"),
			core.FieldError{Field: "populate", Error: "must be one of chapters, questions or notes"},
		)
	}
	return p, nil
}
