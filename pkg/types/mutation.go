package types

// Mutation is a validated change to exactly one record, ready to write.
// Original holds the previous values of the changed fields only.
type Mutation struct {
	TaskID    ID
	Original  Changes
	Changes   Changes
	OldLine   string
	NewLine   string
	LineIndex int
}

// StatusChange reports the status transition carried by the mutation.
func (m *Mutation) StatusChange() (from, to Status, ok bool) {
	if !m.Changes.Has(FieldStatus) {
		return 0, 0, false
	}
	return m.Original.Status, m.Changes.Status, true
}
