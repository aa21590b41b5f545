// Package validate checks request payloads against their struct tags and
// turns the first failure into a plain english error.
package validate

import (
	"errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var (
	checker    *validator.Validate
	translator ut.Translator
)

func init() {
	checker = validator.New()

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(checker, translator)
}

// Check validates val against its struct tags. The returned error carries
// the translated message of the first failing field.
func Check(val any) error {
	err := checker.Struct(val)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	return errors.New(verrs[0].Translate(translator))
}

// GenerateID mints a new record id.
func GenerateID() string {
	return uuid.NewString()
}

// CheckID rejects path parameters that are not well formed ids.
func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("ID is not in its proper form")
	}
	return nil
}
