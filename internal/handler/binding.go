package handler

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/go-playground/validator/v10"
)

// bindError turns a gin binding failure into a validation error naming the
// first offending field in its JSON form, e.g. orders[0].market_hash.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := fmt.Sprintf("failed %q check", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q check (%s)", fe.Tag(), fe.Param())
		}
		return apperrors.NewValidation(jsonPath(fe.Namespace()), msg)
	}
	return apperrors.NewInvalidRequest(err.Error())
}

// jsonPath drops the root struct name and snake-cases each segment.
func jsonPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
