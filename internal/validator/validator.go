package validator

import (
	"errors"
	"fmt"
	"visionary-backend/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Email checks an identity email before it is sent to the admin check.
// 254 is the longest address a mail path can carry.
func Email(email string) error {
	const maxlength = 254

	if len(email) > maxlength {
		return fmt.Errorf("long_email")
	}

	if validate.Var(email, "required,email") != nil {
		return fmt.Errorf("bad_format")
	}

	return nil
}

func ModerationStatus(status models.ModerationStatus) error {
	switch status {
	case models.ModerationPending, models.ModerationApproved, models.ModerationRejected:
		return nil
	}
	return fmt.Errorf("unknown_status")
}

// Struct validates the tags of v. Field errors come back as a map of
// field name to the failed tag, anything else as a plain error.
func Struct(v any) (map[string]string, error) {
	err := validate.Struct(v)
	if err == nil {
		return nil, nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return nil, err
	}

	fieldErrors := make(map[string]string, len(validateErrs))
	for _, e := range validateErrs {
		fieldErrors[e.Field()] = e.Tag()
	}
	return fieldErrors, nil
}
