package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Editable field names. They match the species table columns and the JSON
// names used by the form and the HTTP surface.
const (
	FieldScientificName  = "scientific_name"
	FieldCommonName      = "common_name"
	FieldKingdom         = "kingdom"
	FieldTotalPopulation = "total_population"
	FieldImage           = "image"
	FieldDescription     = "description"
)

// Fields returns the editable field names in form order.
func Fields() []string {
	return []string{
		FieldScientificName,
		FieldCommonName,
		FieldKingdom,
		FieldTotalPopulation,
		FieldImage,
		FieldDescription,
	}
}

// Validation messages reported per field.
const (
	MsgRequired   = "is required"
	MsgInteger    = "must be an integer"
	MsgMinimumOne = "must be ≥ 1"
	MsgURL        = "must be a valid URL"
)

// MsgKingdom lists the accepted kingdoms.
var MsgKingdom = func() string {
	names := make([]string, 0, len(Kingdoms()))
	for _, k := range Kingdoms() {
		names = append(names, string(k))
	}
	return "must be one of " + strings.Join(names, ", ")
}()

// SpeciesInput is the raw, unvalidated form content. Every field may be
// missing; TotalPopulation accepts either a JSON number or a numeric string.
type SpeciesInput struct {
	ScientificName  *string      `json:"scientific_name"`
	CommonName      *string      `json:"common_name"`
	Kingdom         *string      `json:"kingdom"`
	TotalPopulation *json.Number `json:"total_population"`
	Image           *string      `json:"image"`
	Description     *string      `json:"description"`
}

// InputFromSpecies builds the form defaults for an existing record. Missing
// text becomes "" and a missing kingdom falls back to DefaultKingdom.
func InputFromSpecies(s Species) SpeciesInput {
	kingdom := string(s.Kingdom)
	if kingdom == "" {
		kingdom = string(DefaultKingdom)
	}
	in := SpeciesInput{
		ScientificName: ptr(s.ScientificName),
		CommonName:     ptr(deref(s.CommonName)),
		Kingdom:        ptr(kingdom),
		Image:          ptr(deref(s.Image)),
		Description:    ptr(deref(s.Description)),
	}
	if s.TotalPopulation != nil {
		n := json.Number(strconv.FormatInt(*s.TotalPopulation, 10))
		in.TotalPopulation = &n
	}
	return in
}

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

// Error renders the field errors in a stable order.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return "invalid species: " + strings.Join(parts, "; ")
}

var speciesValidator = newSpeciesValidator()

func newSpeciesValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("kingdom", func(fl validator.FieldLevel) bool {
		return Kingdom(fl.Field().String()).Valid()
	}); err != nil {
		panic(fmt.Errorf("register kingdom validation: %w", err))
	}
	return v
}

// ValidateSpecies normalizes and validates the raw input. The returned payload
// is always the normalized form of the input; it is safe to persist only when
// the returned FieldErrors is nil.
func ValidateSpecies(in SpeciesInput) (SpeciesPayload, FieldErrors) {
	errs := FieldErrors{}
	p := SpeciesPayload{
		ScientificName: strings.TrimSpace(deref(in.ScientificName)),
		CommonName:     optionalText(in.CommonName),
		Image:          optionalText(in.Image),
		Description:    optionalText(in.Description),
	}
	if in.Kingdom != nil {
		p.Kingdom = Kingdom(*in.Kingdom)
	}
	if in.TotalPopulation != nil {
		n, present, err := parsePopulation(*in.TotalPopulation)
		switch {
		case err != nil:
			errs[FieldTotalPopulation] = MsgInteger
		case present:
			p.TotalPopulation = &n
		}
	}

	if err := speciesValidator.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			// Only reachable on programmer error (non-struct input).
			panic(err)
		}
		for _, fe := range verrs {
			if _, seen := errs[fe.Field()]; seen {
				continue
			}
			errs[fe.Field()] = messageFor(fe)
		}
	}

	if len(errs) == 0 {
		return p, nil
	}
	return p, errs
}

// ValidatePayload re-checks an already normalized payload.
func ValidatePayload(p SpeciesPayload) FieldErrors {
	in := SpeciesInput{
		ScientificName: ptr(p.ScientificName),
		CommonName:     p.CommonName,
		Kingdom:        ptr(string(p.Kingdom)),
		Image:          p.Image,
		Description:    p.Description,
	}
	if p.TotalPopulation != nil {
		n := json.Number(strconv.FormatInt(*p.TotalPopulation, 10))
		in.TotalPopulation = &n
	}
	_, errs := ValidateSpecies(in)
	return errs
}

// ValidateField returns the message for a single field, or "" when the field
// is valid.
func ValidateField(name string, in SpeciesInput) string {
	_, errs := ValidateSpecies(in)
	return errs[name]
}

func messageFor(fe validator.FieldError) string {
	if fe.Field() == FieldKingdom {
		return MsgKingdom
	}
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "min":
		return MsgMinimumOne
	case "url":
		return MsgURL
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// parsePopulation reports the parsed value and whether one was supplied.
// Integral decimals such as "12.0" are accepted as integers.
func parsePopulation(raw json.Number) (int64, bool, error) {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, true, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, true, fmt.Errorf("population %q is out of range: %w", s, err)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true, err
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, true, fmt.Errorf("population %q is not an integer", s)
	}
	return int64(f), true, nil
}

func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func ptr[T any](v T) *T { return &v }

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
