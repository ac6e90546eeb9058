package canvas

// Store owns the in-progress draft for one session. It is not safe for
// concurrent use; callers serialize access.
type Store struct {
	draft Draft
}

// NewStore returns a store holding an empty draft.
func NewStore() *Store {
	return &Store{draft: Defaults()}
}

// SetField stores value under f. Changing the business stage clears the
// primary goal, since goal options depend on the stage.
func (s *Store) SetField(f Field, value string) {
	p := s.draft.ref(f)
	if p == nil {
		return
	}
	*p = value
	if f == FieldBusinessStage {
		s.draft.PrimaryGoal = ""
	}
}

// Draft returns a copy of the current draft.
func (s *Store) Draft() Draft {
	return s.draft
}

// Replace swaps in a whole draft, e.g. one restored from history.
func (s *Store) Replace(d Draft) {
	s.draft = d
}

// IsSubmittable reports whether the draft has any canvas content.
func (s *Store) IsSubmittable() bool {
	return s.draft.HasContent()
}

// Reset restores every field to its initial value.
func (s *Store) Reset() {
	s.draft = Defaults()
}
