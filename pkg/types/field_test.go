package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldSet(t *testing.T) {
	var s FieldSet
	assert.True(t, s.Empty())

	s = s.With(FieldDeps).With(FieldStatus)
	assert.True(t, s.Has(FieldStatus))
	assert.True(t, s.Has(FieldDeps))
	assert.False(t, s.Has(FieldPrio))
	assert.Equal(t, []Field{FieldStatus, FieldDeps}, s.Fields())
}

func TestChangesApplyAndCapture(t *testing.T) {
	rec := Record{ID: "3", Status: StatusOpen, Beschreibung: "old", Deps: []ID{"1"}}

	var c Changes
	c.SetStatus(StatusDone)
	c.SetDeps([]ID{"1", "2"})

	before := Capture(rec, c.Fields)
	c.Apply(&rec)

	assert.Equal(t, StatusDone, rec.Status)
	assert.Equal(t, []ID{"1", "2"}, rec.Deps)
	assert.Equal(t, "old", rec.Beschreibung)
	assert.Equal(t, StatusOpen, before.Status)
	assert.Equal(t, []ID{"1"}, before.Deps)
}

func TestParseField(t *testing.T) {
	f, ok := ParseField("beschreibung")
	assert.True(t, ok)
	assert.Equal(t, FieldBeschreibung, f)

	_, ok = ParseField("owner")
	assert.False(t, ok)
}

func TestRecordHelpers(t *testing.T) {
	rec := Record{ID: "b2", Deps: []ID{"4"}}
	assert.True(t, rec.IsBug())
	assert.True(t, rec.HasDep("4"))
	assert.False(t, rec.HasDep("5"))

	clone := rec.Clone()
	clone.Deps[0] = "9"
	assert.Equal(t, ID("4"), rec.Deps[0])
}
