package canvas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetField_BusinessStageClearsGoal(t *testing.T) {
	tests := []struct {
		name      string
		priorGoal string
		stage     string
	}{
		{"goal set, new stage", "Validation", "Existing"},
		{"goal set, same stage", "Pitch", "New"},
		{"goal empty", "", "New"},
		{"stage cleared", "Expansion", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SetField(FieldBusinessStage, "New")
			s.SetField(FieldPrimaryGoal, tt.priorGoal)

			s.SetField(FieldBusinessStage, tt.stage)

			assert.Equal(t, "", s.Draft().PrimaryGoal)
			assert.Equal(t, tt.stage, s.Draft().BusinessStage)
		})
	}
}

func TestSetField_OtherFieldsLeaveGoal(t *testing.T) {
	s := NewStore()
	s.SetField(FieldPrimaryGoal, "Launch")
	s.SetField(FieldIndustry, "Tech")
	s.SetField(FieldValuePropositions, "AI tutoring for kids")

	d := s.Draft()
	assert.Equal(t, "Launch", d.PrimaryGoal)
	assert.Equal(t, "Tech", d.Industry)
	assert.Equal(t, "AI tutoring for kids", d.ValuePropositions)
}

func TestIsSubmittable(t *testing.T) {
	tests := []struct {
		name   string
		fields map[Field]string
		want   bool
	}{
		{"empty draft", nil, false},
		{"classifiers only", map[Field]string{
			FieldBusinessStage: "New",
			FieldPrimaryGoal:   "Pitch",
			FieldIndustry:      "Tech",
		}, false},
		{"whitespace content", map[Field]string{FieldChannels: "   \n\t"}, false},
		{"one content field", map[Field]string{FieldValuePropositions: "AI tutoring for kids"}, true},
		{"last content field", map[Field]string{FieldRevenueStreams: "subscriptions"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			for f, v := range tt.fields {
				s.SetField(f, v)
			}
			assert.Equal(t, tt.want, s.IsSubmittable())
		})
	}
}

func TestReset(t *testing.T) {
	s := NewStore()
	for _, f := range Fields {
		s.SetField(f, "x")
	}
	s.Reset()
	assert.Equal(t, Defaults(), s.Draft())
}

func TestDraftIsCopied(t *testing.T) {
	s := NewStore()
	s.SetField(FieldKeyPartners, "suppliers")
	snap := s.Draft()

	s.SetField(FieldKeyPartners, "banks")

	assert.Equal(t, "suppliers", snap.KeyPartners)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("customerSegments")
	require.NoError(t, err)
	assert.Equal(t, FieldCustomerSegments, f)

	_, err = ParseField("nope")
	assert.Error(t, err)
}

func TestContentFields(t *testing.T) {
	assert.Len(t, ContentFields, 9)
	for _, f := range []Field{FieldBusinessStage, FieldPrimaryGoal, FieldIndustry} {
		assert.NotContains(t, ContentFields, f)
	}
}

func TestUnmarshalJSON_MergesOverDefaults(t *testing.T) {
	// Older snapshots lack the classifier fields and may carry stray types.
	raw := `{"valuePropositions":"Fresh fish delivery","keyPartners":42,"legacyField":"x"}`

	var d Draft
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	assert.Equal(t, "Fresh fish delivery", d.ValuePropositions)
	assert.Equal(t, "", d.KeyPartners)
	assert.Equal(t, "", d.BusinessStage)
	assert.Equal(t, "", d.PrimaryGoal)
}

func TestUnmarshalJSON_Null(t *testing.T) {
	d := Draft{Channels: "stale"}
	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Equal(t, Defaults(), d)
}

func TestGoalsFor(t *testing.T) {
	assert.Len(t, GoalsFor(StageNew), 4)
	assert.Len(t, GoalsFor(StageExisting), 4)
	assert.Nil(t, GoalsFor("Unknown"))

	goals := GoalsFor(StageNew)
	goals[0].ID = "mutated"
	assert.Equal(t, "Validation", GoalsFor(StageNew)[0].ID)
}

func TestGoalDescription(t *testing.T) {
	assert.Contains(t, GoalDescription("Pitch"), "Investors")
	assert.Equal(t, "General Analysis", GoalDescription(""))
}
