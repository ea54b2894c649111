package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)

// request is the validated form of a user supplied name and version.
type request struct {
	Name    string `validate:"required,pkgname"`
	Version string `validate:"omitempty,pkgversion"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("pkgname", func(fl validator.FieldLevel) bool {
		return packageNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("pkgversion", func(fl validator.FieldLevel) bool {
		return validVersion(fl.Field().String())
	})
	return v
}

// validVersion accepts exact versions, "outer/inner" reference versions and
// prefix patterns whose only "*" is the final character. Every
// slash-separated segment must name a real path element.
func validVersion(v string) bool {
	if strings.Contains(v, "..") {
		return false
	}
	for _, seg := range strings.Split(v, "/") {
		if seg == "" || seg == "." {
			return false
		}
	}
	if i := strings.IndexByte(v, '*'); i >= 0 && i != len(v)-1 {
		return false
	}
	for _, r := range v {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '\\' {
			return false
		}
	}
	return true
}

// ValidateRequest checks a package name and an optional version request.
// It runs before any filesystem or process side effect.
func ValidateRequest(name, versionRequest string) error {
	err := validate.Struct(request{Name: name, Version: versionRequest})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0]
		switch field.Field() {
		case "Name":
			return NewValidationError(fmt.Sprintf("invalid package name %q", name), nil).WithResource(name)
		case "Version":
			return NewValidationError(fmt.Sprintf("invalid version %q", versionRequest), nil).
				WithResource(name + "/" + versionRequest)
		}
	}
	return NewValidationError("invalid request", err)
}

// SplitSpec splits "name/version" at the first slash. The version keeps any
// further slashes so reference versions survive.
func SplitSpec(spec string) (name, versionRequest string) {
	name, versionRequest, _ = strings.Cut(strings.TrimSpace(spec), "/")
	return name, versionRequest
}
