package richerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode_AcceptsHierarchicalSegments(t *testing.T) {
	c, err := NewCode("iceberg.commit.conflict")
	require.NoError(t, err)
	assert.Equal(t, "iceberg.commit.conflict", c.String())
	assert.Equal(t, "iceberg", c.Package())
}

func TestNewCode_RejectsSingleSegment(t *testing.T) {
	_, err := NewCode("conflict")
	assert.Error(t, err)
}

func TestNewCode_RejectsUppercaseAndHyphens(t *testing.T) {
	_, err := NewCode("Iceberg.Commit")
	assert.Error(t, err)
	_, err = NewCode("iceberg.commit-conflict")
	assert.Error(t, err)
}

func TestMustNewCode_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustNewCode("bad code") })
}

func TestError_WrapsCauseAndContext(t *testing.T) {
	cause := errors.New("disk full")
	code := MustNewCode("iceberg.manifest.io_failed")
	err := New(code, "write manifest entry", cause).AddContext("path", "/tmp/m0.avro")

	assert.Equal(t, cause, err.Unwrap())
	assert.Equal(t, "/tmp/m0.avro", err.GetContext("path"))
	assert.Contains(t, err.Error(), "write manifest entry")
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "path=/tmp/m0.avro")
}

func TestHasCode(t *testing.T) {
	code := MustNewCode("iceberg.commit.conflict")
	other := MustNewCode("iceberg.commit.state_unknown")
	err := Newc(code, "lost the race")

	assert.True(t, HasCode(err, code))
	assert.False(t, HasCode(err, other))
	assert.False(t, HasCode(errors.New("plain"), code))
}

func TestError_IsMatchesByCodeNotMessage(t *testing.T) {
	code := MustNewCode("iceberg.commit.conflict")
	a := Newc(code, "attempt 1 lost")
	b := Newc(code, "attempt 2 lost")

	assert.True(t, errors.Is(a, b))
}

func TestNewf_FormatsMessage(t *testing.T) {
	code := MustNewCode("iceberg.commit.validation_failed")
	err := Newf(code, "added %d > deleted %d", 10, 5)
	assert.Equal(t, "added 10 > deleted 5", err.Message)
	assert.Nil(t, err.Cause)
}

func TestWithCause_Chains(t *testing.T) {
	code := MustNewCode("iceberg.commit.cleanup_failed")
	cause := errors.New("boom")
	err := Newc(code, "cleanup failed").WithCause(cause)
	assert.Equal(t, cause, err.Unwrap())
}
