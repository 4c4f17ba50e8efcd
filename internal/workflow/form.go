package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"speciesdesk/pkg/domain"
)

// ErrUnknownField is returned by Form.Set for names outside domain.Fields.
type ErrUnknownField struct {
	Name string
}

func (e ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown field %q", e.Name)
}

// Field is one form input and its current validation message.
type Field struct {
	Value string `json:"value"`
	Error string `json:"error,omitempty"`
}

// Form holds the edit dialog inputs keyed by field name. It is not safe for
// concurrent use; EditSession serializes access.
type Form struct {
	fields map[string]Field
}

// NewForm returns a form populated with the record's current values.
func NewForm(record domain.Species) *Form {
	f := &Form{fields: make(map[string]Field, len(domain.Fields()))}
	f.load(domain.InputFromSpecies(record))
	return f
}

func (f *Form) load(in domain.SpeciesInput) {
	f.fields[domain.FieldScientificName] = Field{Value: deref(in.ScientificName)}
	f.fields[domain.FieldCommonName] = Field{Value: deref(in.CommonName)}
	f.fields[domain.FieldKingdom] = Field{Value: deref(in.Kingdom)}
	f.fields[domain.FieldImage] = Field{Value: deref(in.Image)}
	f.fields[domain.FieldDescription] = Field{Value: deref(in.Description)}
	pop := ""
	if in.TotalPopulation != nil {
		pop = in.TotalPopulation.String()
	}
	f.fields[domain.FieldTotalPopulation] = Field{Value: pop}
}

// Set stores a new value and re-validates that field.
func (f *Form) Set(name, value string) (Field, error) {
	if _, ok := f.fields[name]; !ok {
		return Field{}, ErrUnknownField{Name: name}
	}
	f.fields[name] = Field{Value: value}
	field := f.fields[name]
	field.Error = domain.ValidateField(name, f.Input())
	f.fields[name] = field
	return field, nil
}

// Field returns the named field.
func (f *Form) Field(name string) (Field, bool) {
	field, ok := f.fields[name]
	return field, ok
}

// Fields returns a copy of every field.
func (f *Form) Fields() map[string]Field {
	out := make(map[string]Field, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out
}

// Input converts the form into raw validator input. A blank population is
// treated as absent.
func (f *Form) Input() domain.SpeciesInput {
	in := domain.SpeciesInput{
		ScientificName: ptr(f.fields[domain.FieldScientificName].Value),
		CommonName:     ptr(f.fields[domain.FieldCommonName].Value),
		Kingdom:        ptr(f.fields[domain.FieldKingdom].Value),
		Image:          ptr(f.fields[domain.FieldImage].Value),
		Description:    ptr(f.fields[domain.FieldDescription].Value),
	}
	if pop := strings.TrimSpace(f.fields[domain.FieldTotalPopulation].Value); pop != "" {
		n := json.Number(pop)
		in.TotalPopulation = &n
	}
	return in
}

// Validate checks every field, records the messages on the form and returns
// the normalized payload.
func (f *Form) Validate() (domain.SpeciesPayload, domain.FieldErrors) {
	payload, errs := domain.ValidateSpecies(f.Input())
	for name, field := range f.fields {
		field.Error = errs[name]
		f.fields[name] = field
	}
	return payload, errs
}

// Valid reports whether no field currently carries an error.
func (f *Form) Valid() bool {
	for _, field := range f.fields {
		if field.Error != "" {
			return false
		}
	}
	return true
}

// Reset replaces every value with the payload and clears all errors.
func (f *Form) Reset(p domain.SpeciesPayload) {
	in := domain.SpeciesInput{
		ScientificName: ptr(p.ScientificName),
		CommonName:     ptr(deref(p.CommonName)),
		Kingdom:        ptr(string(p.Kingdom)),
		Image:          ptr(deref(p.Image)),
		Description:    ptr(deref(p.Description)),
	}
	if p.TotalPopulation != nil {
		n := json.Number(strconv.FormatInt(*p.TotalPopulation, 10))
		in.TotalPopulation = &n
	}
	f.load(in)
}

func ptr[T any](v T) *T { return &v }

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
