package vault

import (
	"github.com/go-playground/validator/v10"

	"github.com/roach88/thisme/internal/operator"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// username mirrors the kernel's identity rule so a vault name is always
	// a valid @ target.
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		_, err := operator.NormalizeUsername(fl.Field().String())
		return err == nil
	})
}

// credentials are the inputs to Create and Open.
type credentials struct {
	Dir      string `validate:"required"`
	Username string `validate:"required,username"`
	Hash     string `validate:"required,min=4"`
}

// Endorsement is a signed statement another identity made about this one.
type Endorsement struct {
	By        string `json:"by" validate:"required,username"`
	Statement string `json:"statement" validate:"required,max=1024"`
	Signature string `json:"signature,omitempty"`
	At        int64  `json:"at" validate:"gte=0"`
}
