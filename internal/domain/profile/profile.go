package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// Species values recognized by the router.
const (
	SpeciesDog = "dog"
	SpeciesCat = "cat"
)

var (
	dogAliases = []string{"강아지", "개", "dog", "반려견"}
	catAliases = []string{"고양이", "냥이", "cat", "반려묘"}
)

// Profile is the optional structured context about the pet a query is asked for.
type Profile struct {
	Species     string   `json:"species,omitempty"`
	Breed       string   `json:"breed,omitempty"`
	AgeYears    *int     `json:"age_years,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Neutered    *bool    `json:"neutered,omitempty"`
	WeightKg    *float64 `json:"weight_kg,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
	Diseases    []string `json:"diseases,omitempty"`
	Medications []string `json:"medications,omitempty"`
}

// HasMedicalHistory reports whether any disease or medication is on record.
func (p *Profile) HasMedicalHistory() bool {
	return p != nil && (len(p.Diseases) > 0 || len(p.Medications) > 0)
}

// SpeciesKind normalizes the free-form species to SpeciesDog, SpeciesCat or "".
func (p *Profile) SpeciesKind() string {
	if p == nil {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(p.Species))
	for _, a := range dogAliases {
		if strings.Contains(s, a) {
			return SpeciesDog
		}
	}
	for _, a := range catAliases {
		if strings.Contains(s, a) {
			return SpeciesCat
		}
	}
	return ""
}

// maxListTerms caps each list contribution to the enhanced query.
const maxListTerms = 2

// Terms renders the profile as query terms, in a fixed order.
func (p *Profile) Terms() []string {
	if p == nil {
		return nil
	}
	var terms []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			terms = append(terms, s)
		}
	}

	add(p.Species)
	add(p.Breed)
	if p.AgeYears != nil {
		add(strconv.Itoa(*p.AgeYears) + "살")
	}
	add(p.Gender)
	if p.Neutered != nil {
		if *p.Neutered {
			add("중성화됨")
		} else {
			add("중성화안됨")
		}
	}
	if p.WeightKg != nil {
		add(strconv.FormatFloat(*p.WeightKg, 'f', -1, 64) + "kg")
	}
	if l := head(p.Allergies); len(l) > 0 {
		add(fmt.Sprintf("알러지: %s", strings.Join(l, ", ")))
	}
	if l := head(p.Diseases); len(l) > 0 {
		add(fmt.Sprintf("질병력: %s", strings.Join(l, ", ")))
	}
	if l := head(p.Medications); len(l) > 0 {
		add(fmt.Sprintf("복용약물: %s", strings.Join(l, ", ")))
	}
	return terms
}

func head(items []string) []string {
	out := make([]string, 0, maxListTerms)
	for _, it := range items {
		if it = strings.TrimSpace(it); it == "" {
			continue
		}
		out = append(out, it)
		if len(out) == maxListTerms {
			break
		}
	}
	return out
}
