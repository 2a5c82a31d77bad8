package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"settle/pkg/domain"
	"settle/services/library/internal/app"
)

type signUpRequest struct {
	UserName string `json:"userName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"omitempty,userrole"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

type createBookRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	URL         string   `json:"url" validate:"required,max=2048"`
	Category    string   `json:"category" validate:"required,max=100"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	ReleaseDate *string  `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
}

// updateBookRequest has no authorId: ownership is fixed at creation.
type updateBookRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=255"`
	URL         *string  `json:"url" validate:"omitempty,max=2048"`
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	ReleaseDate *string  `json:"releaseDate" validate:"omitempty,datetime=2006-01-02"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("userrole", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseUserRole(fl.Field().String())
		return ok
	})
	return v
}

// validationMessages renders validator errors as one message per field.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return msgs
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " should not be empty"
	case "email":
		return field + " must be an email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "datetime":
		return field + " must be a YYYY-MM-DD date"
	case "userrole":
		return field + " must be one of the following values: USER, AUTHOR"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func parseDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, errors.New("releaseDate must be a YYYY-MM-DD date")
	}
	return &t, nil
}

func (req createBookRequest) toInput() (app.CreateBookInput, error) {
	released, err := parseDate(req.ReleaseDate)
	if err != nil {
		return app.CreateBookInput{}, err
	}
	return app.CreateBookInput{
		Title:       &req.Title,
		URL:         &req.URL,
		Category:    &req.Category,
		Price:       req.Price,
		ReleaseDate: released,
	}, nil
}

func (req updateBookRequest) toInput() (app.UpdateBookInput, error) {
	released, err := parseDate(req.ReleaseDate)
	if err != nil {
		return app.UpdateBookInput{}, err
	}
	return app.UpdateBookInput{
		Title:       req.Title,
		URL:         req.URL,
		Category:    req.Category,
		Price:       req.Price,
		ReleaseDate: released,
	}, nil
}
