package handler

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	bookingDomain "github.com/travel-golobe/service-booking/internal/domain/booking"
	"github.com/travel-golobe/service-booking/pkg/domain"
	"github.com/travel-golobe/service-booking/pkg/response"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the custom binding rules to gin's validator.
// It is safe to call more than once; every call returns the first result.
func RegisterValidators() error {
	registerOnce.Do(func() {
		registerErr = registerValidators(binding.Validator.Engine())
	})
	return registerErr
}

func registerValidators(engine any) error {
	v, ok := engine.(*validator.Validate)
	if !ok {
		return fmt.Errorf("unsupported binding validator engine %T", engine)
	}
	if err := v.RegisterValidation("ddmmyyyy", validateDDMMYYYY); err != nil {
		return fmt.Errorf("failed to register ddmmyyyy validator: %w", err)
	}
	return nil
}

func validateDDMMYYYY(fl validator.FieldLevel) bool {
	_, err := time.Parse(bookingDomain.DateLayout, fl.Field().String())
	return err == nil
}

// bindJSON decodes the request body into req. Malformed JSON is a 400; a
// body that decodes but breaks a binding rule is a 422 validation error.
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.Error(c, domain.NewValidationError(describeValidationErrors(verrs)))
		return false
	}
	response.BadRequest(c, err.Error())
	return false
}

func describeValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "ddmmyyyy":
			msgs = append(msgs, fmt.Sprintf("%s must be in the format dd-mm-yyyy", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
