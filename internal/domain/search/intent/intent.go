package intent

import (
	"strings"

	"github.com/kailas-cloud/carekb/internal/domain/profile"
)

// Kind is the primary intent of a query.
type Kind int

const (
	// General routes to the general-care collection only.
	General Kind = iota
	// Treatment routes to medication knowledge first, then general care.
	Treatment
)

func (k Kind) String() string {
	if k == Treatment {
		return "treatment"
	}
	return "general"
}

// Topic is the secondary scoping signal used by the metadata filter.
type Topic int

const (
	// TopicNone applies no topic scoping.
	TopicNone Topic = iota
	// TopicVaccination restricts medication records to vaccine mentions.
	TopicVaccination
	// TopicCare prefers general-care material over medication records.
	TopicCare
)

func (t Topic) String() string {
	switch t {
	case TopicVaccination:
		return "vaccination"
	case TopicCare:
		return "care"
	default:
		return "none"
	}
}

// Intent is the classification of one query.
type Intent struct {
	Kind    Kind
	Topic   Topic
	Disease bool
	Species string
	// Profiled reports that a pet profile accompanied the query.
	Profiled bool
}

// Vocabularies used for classification.
var (
	TreatmentTerms   = []string{"약", "치료", "병", "질병", "아파", "증상", "부작용", "medication", "treatment", "처방"}
	GeneralTerms     = []string{"건강관리", "사료", "운동", "산책", "관리", "키우기", "예방접종", "백신", "목욕", "훈련"}
	VaccinationTerms = []string{"예방접종", "백신", "접종", "vaccine"}
	CareTerms        = []string{"건강관리", "사료", "운동", "산책", "관리", "키우기"}
	DiseaseTerms     = []string{"약", "치료", "병", "질병", "아파", "medication", "treatment"}
)

// Classify derives the intent of query given an optional profile. Pure.
func Classify(query string, p *profile.Profile) Intent {
	q := strings.ToLower(query)

	treatment := containsAny(q, TreatmentTerms)
	general := containsAny(q, GeneralTerms)

	in := Intent{Kind: General, Species: p.SpeciesKind(), Profiled: p != nil}
	if treatment || (p.HasMedicalHistory() && !general) {
		in.Kind = Treatment
	}

	switch {
	case containsAny(q, VaccinationTerms):
		in.Topic = TopicVaccination
	case containsAny(q, CareTerms):
		in.Topic = TopicCare
	}
	in.Disease = containsAny(q, DiseaseTerms)
	return in
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
