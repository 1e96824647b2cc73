package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFound("load", "t1", "no metadata record")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrCorrupt))

	wrapped := fmt.Errorf("status report: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestError_MessageNamesOperationAndUnit(t *testing.T) {
	err := Corrupt("load", "t1", "metadata does not match schema", errors.New("status: invalid value"))

	msg := err.Error()
	assert.Contains(t, msg, "load t1")
	assert.Contains(t, msg, "metadata does not match schema")
	assert.Contains(t, msg, "status: invalid value")
	assert.Contains(t, msg, "CORRUPT")
}

func TestError_LineNumberIncluded(t *testing.T) {
	err := MalformedPlan(7, "unknown checkbox marker")
	assert.Contains(t, err.Error(), "line 7")
}

func TestWithUnit(t *testing.T) {
	base := MalformedPlan(3, "checkbox before first phase heading")

	err := WithUnit(base, "replace-plan", "t1")
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "replace-plan", e.Op)
	assert.Equal(t, "t1", e.ID)
	assert.Equal(t, 3, e.Line)
	assert.True(t, errors.Is(err, ErrMalformedPlan))

	// Original is untouched
	assert.Equal(t, "", base.ID)

	plain := WithUnit(errors.New("disk full"), "save", "t2")
	assert.Contains(t, plain.Error(), "save t2")
	assert.Nil(t, WithUnit(nil, "save", "t2"))
}

func TestCodeOf_NonTyped(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("boom")))
}
