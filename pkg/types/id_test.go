package types

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   ID
		wantOK bool
	}{
		{name: "plain task", raw: "12", want: "12", wantOK: true},
		{name: "hash prefix", raw: "#12", want: "12", wantOK: true},
		{name: "whitespace", raw: "  7 ", want: "7", wantOK: true},
		{name: "leading zeros", raw: "007", want: "7", wantOK: true},
		{name: "suffix task", raw: "428B", want: "428b", wantOK: true},
		{name: "bug", raw: "b3", want: "b3", wantOK: true},
		{name: "bug uppercase", raw: "B03", want: "b3", wantOK: true},
		{name: "zero rejected", raw: "0", wantOK: false},
		{name: "zero bug rejected", raw: "b0", wantOK: false},
		{name: "zero padded bug rejected", raw: "b000", wantOK: false},
		{name: "empty rejected", raw: "", wantOK: false},
		{name: "dash rejected", raw: "-", wantOK: false},
		{name: "two letter suffix rejected", raw: "12ab", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseID(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIDAccessors(t *testing.T) {
	assert.True(t, ID("b4").IsBug())
	assert.False(t, ID("428b").IsBug())
	assert.Equal(t, 428, ID("428b").Number())
	assert.Equal(t, "b", ID("428b").Suffix())
	assert.Equal(t, 4, ID("b4").Number())
	assert.Equal(t, "", ID("b4").Suffix())
	assert.Equal(t, "#12", ID("12").Ref())
	assert.Equal(t, "b4", ID("b4").Ref())
	assert.Equal(t, ID("9"), TaskID(9))
	assert.Equal(t, ID("b9"), BugID(9))
}

func TestCompareIDsOrdersBugsAfterTasks(t *testing.T) {
	ids := []ID{"b2", "10", "b1", "2", "2a", "1"}
	sort.Slice(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 })
	assert.Equal(t, []ID{"1", "2", "2a", "10", "b1", "b2"}, ids)
	assert.Equal(t, 0, CompareIDs("5", "5"))
}
