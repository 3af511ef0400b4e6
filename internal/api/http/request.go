package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 64 << 10

var validate = newValidator()

// newValidator reports fields by their JSON names and compares decimals as
// numbers.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// AdmissionPayload is the booking form body. Unknown fields are rejected.
type AdmissionPayload struct {
	ResourceIDs     []string         `json:"resourceIds" validate:"required,min=1,dive,notblank"`
	OccupantName    string           `json:"occupantName" validate:"notblank"`
	OccupantPhone   string           `json:"occupantPhone" validate:"required,len=10,number"`
	OccupantIDProof string           `json:"occupantIdProof,omitempty"`
	OccupantAddress string           `json:"occupantAddress,omitempty"`
	CheckIn         string           `json:"checkIn" validate:"notblank"`
	CheckOut        string           `json:"checkOut" validate:"notblank"`
	Discount        *decimal.Decimal `json:"discount,omitempty" validate:"omitempty,gte=0"`
	TaxEnabled      *bool            `json:"taxEnabled,omitempty"`
	AdvanceAmount   *decimal.Decimal `json:"advanceAmount,omitempty" validate:"omitempty,gte=0"`
}

func (p *AdmissionPayload) Validate() error {
	err := validate.Struct(p)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	return errors.New(describeFieldError(fieldErrs[0]))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch {
	case fe.Field() == "resourceIds" && (fe.Tag() == "required" || fe.Tag() == "min"):
		return "resourceIds must contain at least one room"
	case fe.Field() == "occupantPhone":
		return "occupantPhone must be exactly 10 digits"
	case fe.Tag() == "gte":
		return field + " cannot be negative"
	case fe.Tag() == "notblank" || fe.Tag() == "required":
		return field + " is required"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

type CheckOutPayload struct {
	ActualCheckOut string `json:"actualCheckOut,omitempty"`
}

type CancelPayload struct {
	Reason string `json:"reason,omitempty"`
}

type PaymentPayload struct {
	Amount decimal.Decimal `json:"amount"`
}

type PaymentCorrectionPayload struct {
	PaidAmount decimal.Decimal `json:"paidAmount"`
	Note       string          `json:"note"`
}

type ExtendPayload struct {
	CheckOut string `json:"checkOut"`
}

// decodeStrict reads exactly one JSON object into dst, rejecting unknown
// fields and trailing data. An empty body leaves dst untouched when
// allowEmpty is set.
func decodeStrict(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return errors.New("request body is required")
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
