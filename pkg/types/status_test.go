package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumsMarshalByName(t *testing.T) {
	v := struct {
		Old  Status   `json:"old"`
		New  Status   `json:"new"`
		Prio Priority `json:"prio"`
		MVP  MVP      `json:"mvp"`
	}{StatusDone, StatusPartial, PrioHigh, MVPNo}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"old":"done","new":"partial","prio":"high","mvp":"no"}`, string(data))

	var back struct {
		Old  Status   `json:"old"`
		New  Status   `json:"new"`
		Prio Priority `json:"prio"`
		MVP  MVP      `json:"mvp"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StatusDone, back.Old)
	assert.Equal(t, StatusPartial, back.New)
	assert.Equal(t, PrioHigh, back.Prio)
	assert.Equal(t, MVPNo, back.MVP)
}

func TestUnmarshalTextRejectsUnknownNames(t *testing.T) {
	var s Status
	assert.Error(t, s.UnmarshalText([]byte("sideways")))
	var p Priority
	assert.Error(t, p.UnmarshalText([]byte("urgent")))
	var m MVP
	assert.Error(t, m.UnmarshalText([]byte("maybe")))
}
