// Package canvas holds the Business Model Canvas input draft.
package canvas

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field names a single draft entry. Values match the JSON keys used on the
// wire and in persisted history snapshots.
type Field string

const (
	FieldBusinessStage         Field = "businessStage"
	FieldPrimaryGoal           Field = "primaryGoal"
	FieldIndustry              Field = "industry"
	FieldKeyPartners           Field = "keyPartners"
	FieldKeyActivities         Field = "keyActivities"
	FieldKeyResources          Field = "keyResources"
	FieldValuePropositions     Field = "valuePropositions"
	FieldCustomerRelationships Field = "customerRelationships"
	FieldChannels              Field = "channels"
	FieldCustomerSegments      Field = "customerSegments"
	FieldCostStructure         Field = "costStructure"
	FieldRevenueStreams        Field = "revenueStreams"
)

// Fields lists every draft field in display order.
var Fields = []Field{
	FieldBusinessStage,
	FieldPrimaryGoal,
	FieldIndustry,
	FieldKeyPartners,
	FieldKeyActivities,
	FieldKeyResources,
	FieldValuePropositions,
	FieldCustomerRelationships,
	FieldChannels,
	FieldCustomerSegments,
	FieldCostStructure,
	FieldRevenueStreams,
}

// ContentFields are the nine canvas blocks. Classifier fields
// (stage, goal, industry) never count as content.
var ContentFields = Fields[3:]

// ParseField resolves a wire name to a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown draft field: %q", name)
}

// Draft is one snapshot of the canvas form. It is a plain value: copying a
// Draft copies all of its data.
type Draft struct {
	BusinessStage         string `json:"businessStage" yaml:"businessStage"`
	PrimaryGoal           string `json:"primaryGoal" yaml:"primaryGoal"`
	Industry              string `json:"industry" yaml:"industry"`
	KeyPartners           string `json:"keyPartners" yaml:"keyPartners"`
	KeyActivities         string `json:"keyActivities" yaml:"keyActivities"`
	KeyResources          string `json:"keyResources" yaml:"keyResources"`
	ValuePropositions     string `json:"valuePropositions" yaml:"valuePropositions"`
	CustomerRelationships string `json:"customerRelationships" yaml:"customerRelationships"`
	Channels              string `json:"channels" yaml:"channels"`
	CustomerSegments      string `json:"customerSegments" yaml:"customerSegments"`
	CostStructure         string `json:"costStructure" yaml:"costStructure"`
	RevenueStreams        string `json:"revenueStreams" yaml:"revenueStreams"`
}

// Defaults returns the initial draft: every field empty.
func Defaults() Draft {
	return Draft{}
}

func (d *Draft) ref(f Field) *string {
	switch f {
	case FieldBusinessStage:
		return &d.BusinessStage
	case FieldPrimaryGoal:
		return &d.PrimaryGoal
	case FieldIndustry:
		return &d.Industry
	case FieldKeyPartners:
		return &d.KeyPartners
	case FieldKeyActivities:
		return &d.KeyActivities
	case FieldKeyResources:
		return &d.KeyResources
	case FieldValuePropositions:
		return &d.ValuePropositions
	case FieldCustomerRelationships:
		return &d.CustomerRelationships
	case FieldChannels:
		return &d.Channels
	case FieldCustomerSegments:
		return &d.CustomerSegments
	case FieldCostStructure:
		return &d.CostStructure
	case FieldRevenueStreams:
		return &d.RevenueStreams
	}
	return nil
}

// Get returns the value of f, or "" for an unknown field.
func (d Draft) Get(f Field) string {
	if p := d.ref(f); p != nil {
		return *p
	}
	return ""
}

// HasContent reports whether at least one content field is non-blank.
func (d Draft) HasContent() bool {
	for _, f := range ContentFields {
		if strings.TrimSpace(d.Get(f)) != "" {
			return true
		}
	}
	return false
}

// FromMap builds a draft from loosely typed data, starting from Defaults.
// Unknown keys and non-string values are ignored so older or foreign
// snapshots still yield a complete draft.
func FromMap(m map[string]any) Draft {
	d := Defaults()
	for _, f := range Fields {
		if s, ok := m[string(f)].(string); ok {
			*d.ref(f) = s
		}
	}
	return d
}

// UnmarshalJSON merges the encoded object over Defaults.
func (d *Draft) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode draft: %w", err)
	}
	*d = FromMap(raw)
	return nil
}
