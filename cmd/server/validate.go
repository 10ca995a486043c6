package main

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Simplici0/listprice/internal/calculator"
	"github.com/Simplici0/listprice/internal/fees"
	"github.com/Simplici0/listprice/internal/lineitem"
)

type lineItemRequest struct {
	Name     string          `json:"name" validate:"max=200"`
	Quantity lineitem.Amount `json:"quantity"`
	Rate     lineitem.Amount `json:"rate"`
}

type offsiteAdRequest struct {
	Mode    string          `json:"mode" validate:"omitempty,oneof=ignore factor"`
	Percent lineitem.Amount `json:"percent"`
}

type incomeTaxRequest struct {
	Mode    string          `json:"mode" validate:"omitempty,oneof=ignore view factor"`
	Percent lineitem.Amount `json:"percent"`
}

// formRequest mirrors calculator.Form. Numeric inputs are kept as typed and
// never rejected here; blank or malformed numbers count as 0 when priced.
type formRequest struct {
	Expenses        []lineItemRequest `json:"expenses" validate:"max=500,dive"`
	Labor           []lineItemRequest `json:"labor" validate:"max=500,dive"`
	Shipping        lineitem.Amount   `json:"shipping"`
	SalesTaxPercent lineitem.Amount   `json:"salesTaxPercent"`
	OffsiteAd       offsiteAdRequest  `json:"offsiteAd"`
	IncomeTax       incomeTaxRequest  `json:"incomeTax"`
}

func (f formRequest) toForm() calculator.Form {
	return calculator.Form{
		Expenses:        toItems(f.Expenses),
		Labor:           toItems(f.Labor),
		Shipping:        f.Shipping,
		SalesTaxPercent: f.SalesTaxPercent,
		OffsiteAd: calculator.OffsiteAd{
			Mode:    fees.OffsiteAdMode(f.OffsiteAd.Mode),
			Percent: f.OffsiteAd.Percent,
		},
		IncomeTax: calculator.IncomeTax{
			Mode:    fees.IncomeTaxMode(f.IncomeTax.Mode),
			Percent: f.IncomeTax.Percent,
		},
	}
}

func toItems(in []lineItemRequest) []lineitem.Item {
	out := make([]lineitem.Item, len(in))
	for i, it := range in {
		out[i] = lineitem.Item{Name: it.Name, Quantity: it.Quantity, Rate: it.Rate}
	}
	return out
}

type quickEstimateRequest struct {
	ListingPrice lineitem.Amount `json:"listingPrice"`
}

type saveRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use JSON tag names in error details.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// decodeAndValidate decodes the body into dst and runs its validate tags.
func (s *server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	if err := s.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *apiError {
	details := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := fe.Namespace()
			if _, rest, ok := strings.Cut(field, "."); ok {
				field = rest
			}
			details[field] = describe(fe)
		}
	}
	return &apiError{
		Code:    codeValidation,
		Message: "request validation failed",
		Details: details,
		status:  http.StatusBadRequest,
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " long"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
