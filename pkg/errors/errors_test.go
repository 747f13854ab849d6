package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "payment provider unreachable")

	require.NotNil(t, err)
	assert.Equal(t, CodeDependency, err.Code())
	assert.True(t, stdErrors.Is(err, cause))
}

func TestAsUnwrapsThroughFmtWrap(t *testing.T) {
	inner := New(CodeNotFound, "product missing")
	outer := fmt.Errorf("loading product: %w", inner)

	typed := As(outer)
	require.NotNil(t, typed)
	assert.Equal(t, CodeNotFound, typed.Code())
}

func TestAsReturnsNilForPlainError(t *testing.T) {
	assert.Nil(t, As(stdErrors.New("plain")))
	assert.Nil(t, As(nil))
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NO_SUCH_CODE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWithDetailsRoundTrip(t *testing.T) {
	err := New(CodeValidation, "bad body").WithDetails(map[string]string{"quantity": "must be at least 1"})
	details, ok := err.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at least 1", details["quantity"])
}

func TestDumpIncludesChain(t *testing.T) {
	cause := stdErrors.New("duplicate key value")
	err := Wrap(CodeConflict, cause, "review already exists")

	dump := Dump(err)
	assert.Contains(t, dump, "CONFLICT")
	assert.Contains(t, dump, "duplicate key value")
}
