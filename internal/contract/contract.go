// internal/contract/contract.go
package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"apigateway/internal/apierr"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

// uuidTag accepts canonical hyphenated UUIDs in either case
const uuidTag = "uuid_any"

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation(uuidTag, isUUID); err != nil {
		panic(err)
	}
	// Report JSON field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// isUUID rejects the braced, urn and unhyphenated forms uuid.Parse also accepts
func isUUID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Issue describes one failed constraint
type Issue struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Error is returned by Validate when a value breaks its declared shape
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Rule)
	}
	return "contract violated: " + strings.Join(parts, "; ")
}

// Validate checks v against its struct tags and returns *Error on failure
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return &Error{Issues: issues}
}

// fieldPath drops the root type name from a validator namespace
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// DecodeRequest decodes an inbound JSON body into dst and validates it.
// dst may carry defaults; fields absent from the body keep them.
func DecodeRequest(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierr.PayloadTooLarge(tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return apierr.Validation([]Issue{{Field: "body", Rule: "required"}}, err)
		}
		return apierr.Validation([]Issue{{Field: "body", Rule: "json"}}, err)
	}
	if dec.More() {
		return apierr.Validation([]Issue{{Field: "body", Rule: "single_value"}}, errors.New("trailing data after JSON body"))
	}

	if err := Validate(dst); err != nil {
		var contractErr *Error
		if errors.As(err, &contractErr) {
			return apierr.Validation(contractErr.Issues, err)
		}
		return apierr.Validation(nil, err)
	}
	return nil
}

// DecodeResponse decodes a downstream payload into dst and validates it.
// Any mismatch is a contract violation; details stay server-side.
func DecodeResponse(payload []byte, dst any) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return apierr.ContractViolation(fmt.Errorf("decoding upstream payload: %w", err))
	}
	if err := Validate(dst); err != nil {
		return apierr.ContractViolation(err)
	}
	return nil
}
