package intent

import (
	"testing"

	"github.com/kailas-cloud/carekb/internal/domain/profile"
)

func TestClassify(t *testing.T) {
	withMeds := &profile.Profile{Species: "고양이", Medications: []string{"스테로이드"}}

	tests := []struct {
		name    string
		query   string
		profile *profile.Profile
		want    Intent
	}{
		{"treatment vocabulary", "피부병 치료 방법", nil,
			Intent{Kind: Treatment, Disease: true}},
		{"general question", "치와와 크기", nil,
			Intent{Kind: General}},
		{"vaccination", "강아지 예방접종 시기", nil,
			Intent{Kind: General, Topic: TopicVaccination}},
		{"care", "산책은 하루에 몇 번", nil,
			Intent{Kind: General, Topic: TopicCare}},
		{"history without general terms", "요즘 잠을 많이 자요", withMeds,
			Intent{Kind: Treatment, Species: profile.SpeciesCat, Profiled: true}},
		{"history with general terms", "사료 추천해줘", withMeds,
			Intent{Kind: General, Topic: TopicCare, Species: profile.SpeciesCat, Profiled: true}},
		{"symptom is treatment but not disease", "부작용 있나요", nil,
			Intent{Kind: Treatment}},
		{"english", "Vaccine schedule", nil,
			Intent{Kind: General, Topic: TopicVaccination}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.query, tc.profile); got != tc.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tc.query, got, tc.want)
			}
		})
	}
}

func TestKindAndTopicString(t *testing.T) {
	if Treatment.String() != "treatment" || General.String() != "general" {
		t.Error("unexpected kind names")
	}
	if TopicVaccination.String() != "vaccination" || TopicCare.String() != "care" || TopicNone.String() != "none" {
		t.Error("unexpected topic names")
	}
}
