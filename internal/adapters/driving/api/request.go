package api

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// validate checks request bodies using `validate` struct tags.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindJSON decodes the body into req and validates it.
// On failure it writes the error response and returns false.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		handleBindError(c, err)
		return false
	}
	if err := validate.Struct(req); err != nil {
		handleBindError(c, err)
		return false
	}
	return true
}

// askRequest is the body of POST /api/ask.
type askRequest struct {
	Question       string   `json:"question" validate:"required"`
	ConversationID string   `json:"conversation_id" validate:"omitempty,max=128"`
	Model          string   `json:"model" validate:"omitempty,contains=:"`
	TopK           int      `json:"top_k" validate:"gte=0,lte=100"`
	MinScore       *float64 `json:"min_score" validate:"omitempty,gte=0,lte=1"`
}

// uploadRequest is the JSON body of a raw text upload.
type uploadRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
	MimeType string `json:"mime_type" validate:"omitempty,max=127"`
	Content  string `json:"content" validate:"required"`
}
