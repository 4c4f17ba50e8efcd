package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func str(v string) *string { return &v }

func num(v string) *json.Number {
	n := json.Number(v)
	return &n
}

func validInput() SpeciesInput {
	return SpeciesInput{
		ScientificName: str("Panthera leo"),
		Kingdom:        str("Animalia"),
	}
}

func TestValidateSpeciesScenarioA(t *testing.T) {
	in := SpeciesInput{
		ScientificName:  str(" Panthera leo "),
		Kingdom:         str("Animalia"),
		CommonName:      str(""),
		TotalPopulation: num("0"),
	}
	p, errs := ValidateSpecies(in)
	if errs == nil {
		t.Fatalf("expected validation failure")
	}
	want := FieldErrors{FieldTotalPopulation: MsgMinimumOne}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if p.ScientificName != "Panthera leo" {
		t.Fatalf("scientific name not trimmed: %q", p.ScientificName)
	}
	if p.CommonName != nil {
		t.Fatalf("blank common name must normalize to absent, got %q", *p.CommonName)
	}
}

func TestValidateSpeciesNormalizes(t *testing.T) {
	in := SpeciesInput{
		ScientificName:  str("  Quercus robur\t"),
		CommonName:      str("  English oak "),
		Kingdom:         str("Plantae"),
		TotalPopulation: num("12"),
		Image:           str(" https://example.org/oak.jpg "),
		Description:     str("   "),
	}
	p, errs := ValidateSpecies(in)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	pop := int64(12)
	want := SpeciesPayload{
		ScientificName:  "Quercus robur",
		CommonName:      str("English oak"),
		Kingdom:         KingdomPlantae,
		TotalPopulation: &pop,
		Image:           str("https://example.org/oak.jpg"),
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateSpeciesScientificName(t *testing.T) {
	for name, value := range map[string]*string{
		"absent": nil,
		"empty":  str(""),
		"blank":  str("   \t\n"),
	} {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			in.ScientificName = value
			_, errs := ValidateSpecies(in)
			if errs[FieldScientificName] != MsgRequired {
				t.Fatalf("expected scientific_name error, got %v", errs)
			}
		})
	}
}

func TestValidateSpeciesKingdom(t *testing.T) {
	for _, k := range Kingdoms() {
		in := validInput()
		in.Kingdom = str(string(k))
		if _, errs := ValidateSpecies(in); errs != nil {
			t.Fatalf("kingdom %s rejected: %v", k, errs)
		}
	}
	bad := []*string{nil, str(""), str("animalia"), str(" Animalia"), str("Chromista"), str("Viruses")}
	for _, k := range bad {
		in := validInput()
		in.Kingdom = k
		_, errs := ValidateSpecies(in)
		if errs[FieldKingdom] != MsgKingdom {
			t.Fatalf("kingdom %v accepted: %v", k, errs)
		}
	}
}

func TestValidateSpeciesTotalPopulation(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		val  int64
	}{
		{raw: "1", val: 1},
		{raw: "250000", val: 250000},
		{raw: "7.0", val: 7},
		{raw: "", want: ""},
		{raw: "0", want: MsgMinimumOne},
		{raw: "-3", want: MsgMinimumOne},
		{raw: "2.5", want: MsgInteger},
		{raw: "many", want: MsgInteger},
		{raw: "1e400", want: MsgInteger},
		{raw: "9223372036854775807", val: math.MaxInt64},
		{raw: "9223372036854775808", want: MsgInteger},
		{raw: "9.223372036854775808e18", want: MsgInteger},
		{raw: "-9223372036854775809", want: MsgInteger},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			in := validInput()
			in.TotalPopulation = num(tc.raw)
			p, errs := ValidateSpecies(in)
			if got := errs[FieldTotalPopulation]; got != tc.want {
				t.Fatalf("population %q: got error %q want %q", tc.raw, got, tc.want)
			}
			if tc.want == "" && tc.val != 0 {
				if p.TotalPopulation == nil || *p.TotalPopulation != tc.val {
					t.Fatalf("population %q: parsed %v", tc.raw, p.TotalPopulation)
				}
			}
			if tc.raw == "" && p.TotalPopulation != nil {
				t.Fatalf("blank population must be absent")
			}
		})
	}
}

func TestValidateSpeciesImage(t *testing.T) {
	good := []string{"https://upload.wikimedia.org/lion.jpg", "http://localhost:8080/x.png", ""}
	for _, v := range good {
		in := validInput()
		in.Image = str(v)
		if _, errs := ValidateSpecies(in); errs != nil {
			t.Fatalf("image %q rejected: %v", v, errs)
		}
	}
	bad := []string{"not a url", "lion.jpg", "//no-scheme", "http://"}
	for _, v := range bad {
		in := validInput()
		in.Image = str(v)
		_, errs := ValidateSpecies(in)
		if errs[FieldImage] != MsgURL {
			t.Fatalf("image %q accepted: %v", v, errs)
		}
	}
}

func TestValidateFieldAndPayload(t *testing.T) {
	in := validInput()
	in.TotalPopulation = num("-1")
	if msg := ValidateField(FieldTotalPopulation, in); msg != MsgMinimumOne {
		t.Fatalf("unexpected field message %q", msg)
	}
	if msg := ValidateField(FieldScientificName, in); msg != "" {
		t.Fatalf("valid field reported %q", msg)
	}
	pop := int64(3)
	if errs := ValidatePayload(SpeciesPayload{ScientificName: "Canis lupus", Kingdom: KingdomAnimalia, TotalPopulation: &pop}); errs != nil {
		t.Fatalf("payload rejected: %v", errs)
	}
	if errs := ValidatePayload(SpeciesPayload{Kingdom: "Mystery"}); len(errs) != 2 {
		t.Fatalf("expected two errors, got %v", errs)
	}
}

func TestInputFromSpeciesDefaults(t *testing.T) {
	in := InputFromSpecies(Species{ID: "1", ScientificName: "Amanita muscaria"})
	if *in.Kingdom != string(DefaultKingdom) {
		t.Fatalf("kingdom default = %q", *in.Kingdom)
	}
	if *in.CommonName != "" || *in.Description != "" || *in.Image != "" {
		t.Fatalf("missing text must become empty strings")
	}
	if in.TotalPopulation != nil {
		t.Fatalf("population should stay absent")
	}
	pop := int64(40)
	in = InputFromSpecies(Species{ScientificName: "x", Kingdom: KingdomFungi, TotalPopulation: &pop})
	if in.TotalPopulation == nil || in.TotalPopulation.String() != "40" || *in.Kingdom != "Fungi" {
		t.Fatalf("unexpected input %+v", in)
	}
}

func TestFieldErrorsError(t *testing.T) {
	errs := FieldErrors{FieldKingdom: "k", FieldImage: "i"}
	if got := errs.Error(); got != "invalid species: image: i; kingdom: k" {
		t.Fatalf("unexpected message %q", got)
	}
}
