package validators

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var passwordPattern = regexp.MustCompile(`^[A-Za-z0-9!@#$%]{4,12}$`)

// CustomValidator plugs go-playground/validator into Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator registers the project rules:
//
//	password  4-12 characters of letters, digits and !@#$%
//	objectid  a 24-character hex MongoDB id
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return primitive.IsValidObjectID(fl.Field().String())
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, describe(err))
	}
	return nil
}

// describe turns validator output into one readable sentence per field.
func describe(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, ". ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "max":
		if field == "Username" {
			return "Username must be 3-20 characters long"
		}
		return field + " must respect " + fe.Tag() + "=" + fe.Param()
	case "email":
		return "Email format is invalid"
	case "password":
		return "Password must be 4-12 characters and only contain letters, numbers, and !@#$%"
	case "objectid":
		return field + " must be a valid id"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	}
	return field + " is invalid"
}
