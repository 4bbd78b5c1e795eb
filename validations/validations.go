package validations

import (
	"context"
	"errors"
	"sort"

	pkgError "github.com/mahalbangetid-beep/scb-sub003/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// toFieldErrors flattens ozzo errors into the list returned to clients.
// Internal validator failures are passed through untouched.
func toFieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return pkgError.ValidationError(err.Error())
	}

	out := make(pkgError.ValidationErrors, 0, len(errs))
	flatten("", errs, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func flatten(prefix string, errs validation.Errors, out *pkgError.ValidationErrors) {
	for field, fieldErr := range errs {
		name := field
		if prefix != "" {
			name = prefix + "." + field
		}
		var nested validation.Errors
		if errors.As(fieldErr, &nested) {
			flatten(name, nested, out)
			continue
		}
		*out = append(*out, pkgError.FieldError{Field: name, Message: fieldErr.Error()})
	}
}

func validate(ctx context.Context, structPtr any, fields ...*validation.FieldRules) error {
	return toFieldErrors(validation.ValidateStructWithContext(ctx, structPtr, fields...))
}
