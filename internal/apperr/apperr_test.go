package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(EmptyDocument, "nothing to extract")
	assert.Equal(t, EmptyDocument, KindOf(err))

	wrapped := fmt.Errorf("processing: %w", err)
	assert.Equal(t, EmptyDocument, KindOf(wrapped))

	assert.Equal(t, Internal, KindOf(errors.New("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(IndexingFailure, "upsert chunks", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, IndexingFailure))
	assert.Contains(t, err.Error(), "upsert chunks")
	assert.Contains(t, err.Error(), "connection refused")
}
