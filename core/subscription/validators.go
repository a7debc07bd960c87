package subscription

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/examhall/core"
)

var (
	planTag  = "plan"
	planText = "must be one of " + plansText()
)

// plansText lists Plans as "A, B or C".
func plansText() string {
	names := make([]string, len(Plans))
	for i, p := range Plans {
		names[i] = string(p)
	}
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

// InitValidators registers subscription validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(planTag, planValidation)
	core.RegisterCustomTranslation(validate, translator, planTag, planText)
}

// planValidation only allows known plans, so every stored Payment maps to a duration.
func planValidation(fl validator.FieldLevel) bool {
	_, ok := PlanDurationDays(Plan(fl.Field().String()))
	return ok
}
