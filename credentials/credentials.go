package credentials

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// RecordKey names the secure record holding the serialized Credentials.
const RecordKey = "userCredentials"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials are the student's portal login. The password must only ever reach
// the secure store and the scrape request body.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate reports ErrValidation when the username or password is empty.
func (c Credentials) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(apperrors.ErrValidation, err.Error())
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		missing = append(missing, strings.ToLower(fe.Field()))
	}
	return errors.Wrapf(apperrors.ErrValidation, "missing %s", strings.Join(missing, ", "))
}

// String redacts the password so Credentials are safe in %v output.
func (c Credentials) String() string {
	return fmt.Sprintf("{username:%s password:<redacted>}", c.Username)
}

// MarshalZerologObject logs the username only.
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Str("username", c.Username)
}
