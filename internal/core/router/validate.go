package router

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
)

var fiscalYearPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("fiscal_year", func(fl validator.FieldLevel) bool {
		return fiscalYearPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("month_name", func(fl validator.FieldLevel) bool {
		return model.FiscalMonthIndex(fl.Field().String()) > 0
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	return v
}

var errBlankCoordinate = errors.New("blank coordinate")

// coordinate accepts a JSON number or a numeric string. A blank string counts as missing.
type coordinate float64

func (c *coordinate) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if strings.TrimSpace(s) == "" {
		return errBlankCoordinate
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*c = coordinate(f)
	return nil
}

type detectRequest struct {
	Latitude  *coordinate `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *coordinate `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type searchRequest struct {
	Q string `json:"q" validate:"required,min=2,max=100"`
}

type historyRequest struct {
	Limit int `json:"limit" validate:"min=1,max=120"`
}

type periodRequest struct {
	FiscalYear string `json:"financialYear" validate:"required,fiscal_year"`
	Month      string `json:"month" validate:"required,month_name"`
}

// validationError converts validator output into the model error the transport maps to 400.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &model.ValidationError{Field: "request", Message: err.Error()}
	}
	fe := verrs[0]
	field := fe.Field()
	var msg string
	switch {
	case field == "latitude" || field == "longitude":
		if fe.Tag() == "required" {
			msg = "Latitude and longitude are required"
		} else {
			msg = "latitude must be within [-90,90] and longitude within [-180,180]"
		}
	case field == "q":
		msg = "Search query must be at least 2 characters"
		if fe.Tag() == "max" {
			msg = "Search query is too long"
		}
	case field == "limit":
		msg = "limit must be between 1 and 120"
	case fe.Tag() == "fiscal_year":
		msg = "financialYear must look like 2024-25"
	case fe.Tag() == "month_name":
		msg = fmt.Sprintf("unknown month %q", fe.Value())
	default:
		msg = fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
	return &model.ValidationError{Field: field, Message: msg}
}
