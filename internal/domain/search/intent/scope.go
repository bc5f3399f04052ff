package intent

import (
	"github.com/kailas-cloud/carekb/internal/domain/chunk"
	"github.com/kailas-cloud/carekb/internal/domain/profile"
	"github.com/kailas-cloud/carekb/internal/domain/search/filter"
)

// DefaultMedicationItemLimit caps medication records for queries that are not about disease.
const DefaultMedicationItemLimit = 50

// FilterOptions tunes Filter.
type FilterOptions struct {
	// MedicationItemLimit keeps medication records with item_index below it
	// for non-disease queries. Zero disables the cap.
	MedicationItemLimit int
}

type speciesVocabulary struct {
	categories     []string
	keywords       []string
	contentTerms   []string
	denyCategories []string
	denyKeywords   []string
	denyContent    []string
}

var speciesVocabularies = map[string]speciesVocabulary{
	profile.SpeciesDog: {
		categories:     []string{"반려견건강", "강아지", "예방접종", "종합건강관리"},
		keywords:       []string{"강아지", "개", "dog", "반려견", "견"},
		contentTerms:   []string{"강아지", "개", "dog", "반려견"},
		denyCategories: []string{"반려묘건강", "고양이"},
		denyKeywords:   []string{"고양이", "냥이", "cat", "반려묘"},
		denyContent:    []string{"고양이", "cat"},
	},
	profile.SpeciesCat: {
		categories:     []string{"반려묘건강", "고양이", "예방접종", "종합건강관리"},
		keywords:       []string{"고양이", "냥이", "cat", "반려묘"},
		contentTerms:   []string{"고양이", "cat", "냥이", "반려묘"},
		denyCategories: []string{"반려견건강", "강아지"},
		denyKeywords:   []string{"강아지", "개", "dog", "반려견"},
		denyContent:    []string{"강아지", "dog"},
	},
}

var (
	careCategories   = []string{"종합건강관리", "사료관리", "기본관리"}
	vaccinationTerms = []string{"백신", "vaccine", "예방접종"}
)

// Filter builds the advisory metadata predicate for an intent. Pure.
//
// Species scoping keeps material tagged for the pet's species, domain-general
// guides, and medication records that mention the species, and rejects
// anything tagged or written for the other species. Topic scoping narrows
// medication records further. Queries without a profile are not scoped.
func Filter(in Intent, opts FilterOptions) filter.Expression {
	if !in.Profiled {
		return filter.Expression{}
	}

	isMed := filter.Match(chunk.KeyDataType, chunk.DataTypeMedication)
	notMed := filter.Group(filter.None(isMed))
	medWith := func(c filter.Condition) filter.Condition {
		return filter.Group(filter.All(isMed, c))
	}

	var expr filter.Expression

	if v, ok := speciesVocabularies[in.Species]; ok {
		expr = expr.And(filter.Any(
			filter.Match(chunk.KeyCategories, v.categories...),
			filter.Match(chunk.KeyKeywords, v.keywords...),
			notMed,
			medWith(filter.Contains(v.contentTerms...)),
		)).And(filter.None(
			filter.Match(chunk.KeyCategories, v.denyCategories...),
			filter.Match(chunk.KeyKeywords, v.denyKeywords...),
			filter.Contains(v.denyContent...),
		))
	}

	switch in.Topic {
	case TopicVaccination:
		expr = expr.And(filter.Any(notMed, medWith(filter.Contains(vaccinationTerms...))))
	case TopicCare:
		expr = expr.And(filter.Any(notMed, filter.Match(chunk.KeyCategories, careCategories...)))
	}

	if !in.Disease && opts.MedicationItemLimit > 0 {
		expr = expr.And(filter.Any(notMed, medWith(filter.Less(chunk.KeyItemIndex, float64(opts.MedicationItemLimit)))))
	}

	return expr
}
