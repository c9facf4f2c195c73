package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := NewError(KindNotFound, "999", "task not in roadmap")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidStatus)

	wrapped := fmt.Errorf("bulk edit: %w", err)
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestClaimExistsSatisfiesClaimRequired(t *testing.T) {
	err := NewError(KindClaimExists, "5", "claimed")
	assert.ErrorIs(t, err, ErrClaimExists)
	assert.ErrorIs(t, err, ErrClaimRequired)

	err = NewError(KindClaimRequired, "5", "wrong key")
	assert.NotErrorIs(t, err, ErrClaimExists)
}

func TestErrorMessage(t *testing.T) {
	err := NewError(KindInvalidDeps, "7", "dependency %s not found", ID("99").Ref())
	assert.Equal(t, "#7: dependency #99 not found", err.Error())

	cause := errors.New("permission denied")
	ioErr := IOError(KindWriteFailed, "/tmp/roadmap.md", cause)
	assert.Equal(t, "write failed (/tmp/roadmap.md): permission denied", ioErr.Error())
	assert.ErrorIs(t, ioErr, cause)
	assert.Equal(t, KindUnknown, KindOf(cause))
}

func TestBatchResult(t *testing.T) {
	var res BatchResult[ID]
	assert.True(t, res.OK())

	res.Succeed("1")
	res.Fail("999", ErrNotFound)

	assert.Equal(t, []ID{"1"}, res.Success)
	assert.Len(t, res.Failed, 1)
	assert.Equal(t, ID("999"), res.Failed[0].ID)
	assert.False(t, res.OK())
}

func TestFailureJSON(t *testing.T) {
	data, err := json.Marshal(Failure{ID: "999", Err: NewError(KindNotFound, "999", "not in the roadmap")})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"id":"999","kind":"not found","error":"#999: not in the roadmap"}`, string(data))
}
