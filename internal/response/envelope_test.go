package response

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/Aman-CERP/podsearch/internal/errors"
)

func TestEnvelope_DataAndErrorAreExclusive(t *testing.T) {
	ok := OK(SearchData[string]{Page: 1, Size: 10, Total: 1, Items: []string{"a"}})
	b, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"page":1,"size":10,"total":1,"items":["a"]}}`, string(b))

	failed := Fail[SearchData[string]](perrors.ErrCodeParseDocument, "all hits failed")
	b, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","error":{"code":"ERR_202_PARSE_DOCUMENT","message":"all hits failed"}}`, string(b))
}

func TestPartial(t *testing.T) {
	env := Partial("x", "2 item(s) skipped due to parse errors")
	assert.Equal(t, StatusPartialSuccess, env.Status)
	assert.Equal(t, "2 item(s) skipped due to parse errors", env.Warning)

	assert.Equal(t, StatusOK, Partial("x", "").Status)
}

func TestAddWarning(t *testing.T) {
	env := OK(1)
	env.AddWarning("first")
	env.AddWarning("second")
	assert.Equal(t, StatusPartialSuccess, env.Status)
	assert.Equal(t, "first; second", env.Warning)

	failed := Fail[int]("ERR_501_INTERNAL", "boom")
	failed.AddWarning("ignored")
	assert.Equal(t, StatusError, failed.Status)
	assert.Empty(t, failed.Warning)
}

func TestFromError(t *testing.T) {
	env := FromError(perrors.ValidationError("q", "q is required"))
	assert.Equal(t, "ERR_401_INVALID_PARAMETER", env.Error.Code)
	assert.Equal(t, "q is required", env.Error.Message)
	assert.Nil(t, env.Data)

	env = FromError(errors.New("nil pointer somewhere"))
	assert.Equal(t, perrors.ErrCodeInternal, env.Error.Code)
	assert.Equal(t, "internal error", env.Error.Message)
}
