package news

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/insights/app/models"
)

// Input is the raw, untrusted form of a create or update request.
type Input struct {
	Name        string
	Date        string
	Title       string
	Tag         []string // every submitted "tag" value, in order
	Description string
}

// payload is Input after normalisation; validator tags describe the rules.
type payload struct {
	Name            string   `json:"name" validate:"required"`
	Date            string   `json:"date" validate:"required,newsdate"`
	Title           string   `json:"title" validate:"required"`
	Tags            []string `json:"tag" validate:"min=1"`
	DescriptionText string   `json:"description" validate:"required"`
}

var fieldMessages = map[string]map[string]string{
	"name":        {"required": "Name is required"},
	"date":        {"required": "Date is required", "newsdate": "Date must be a valid date (YYYY-MM-DD)"},
	"title":       {"required": "Title is required"},
	"tag":         {"min": "At least one tag is required"},
	"description": {"required": "Description is required"},
}

var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

var markupPattern = regexp.MustCompile(`<[^>]+>`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("newsdate", func(fl validator.FieldLevel) bool {
		_, ok := ParseDate(fl.Field().String())
		return ok
	})
	return v
}

// ParseDate accepts a calendar date or a timestamp and returns midnight UTC
// of that day.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseTags turns the submitted tag values into a tag list. Several values
// are taken as the list itself; a single value may be a JSON array or a
// comma separated string. Blank entries are dropped.
func ParseTags(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 {
		raw := strings.TrimSpace(values[0])
		if decoded, ok := decodeTagArray(raw); ok {
			return compact(decoded)
		}
		return compact(strings.Split(raw, ","))
	}
	return compact(values)
}

// decodeTagArray reads a JSON array of any element types. Numbers keep
// their literal form, null becomes blank, objects and nested arrays keep
// their JSON text.
func decodeTagArray(raw string) ([]string, bool) {
	if !strings.HasPrefix(raw, "[") {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var elems []any
	if err := dec.Decode(&elems); err != nil || dec.More() {
		return nil, false
	}

	out := make([]string, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case nil:
			out = append(out, "")
		case string:
			out = append(out, v)
		case json.Number, bool:
			out = append(out, fmt.Sprint(v))
		default:
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(v); err != nil {
				return nil, false
			}
			out = append(out, strings.TrimSpace(buf.String()))
		}
	}
	return out, true
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// StripMarkup removes anything that looks like a tag. It is only used to
// decide whether a description has visible text; the stored description
// keeps its markup.
func StripMarkup(s string) string {
	return strings.TrimSpace(markupPattern.ReplaceAllString(s, ""))
}

func (in Input) normalize() payload {
	return payload{
		Name:            strings.TrimSpace(in.Name),
		Date:            strings.TrimSpace(in.Date),
		Title:           strings.TrimSpace(in.Title),
		Tags:            ParseTags(in.Tag),
		DescriptionText: StripMarkup(in.Description),
	}
}

// validateInput returns the normalised payload and one message per failing
// field. It never stops at the first problem.
func (s *Service) validateInput(in Input) (payload, map[string]string) {
	p := in.normalize()
	errs := map[string]string{}

	if err := s.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["_"] = err.Error()
			return p, errs
		}
		for _, fe := range verrs {
			field := fe.Field()
			if _, seen := errs[field]; seen {
				continue
			}
			msg, ok := fieldMessages[field][fe.Tag()]
			if !ok {
				msg = field + " is invalid"
			}
			errs[field] = msg
		}
	}
	return p, errs
}
