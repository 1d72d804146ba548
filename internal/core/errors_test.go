package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorfWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Errorf(KindDownload, cause, "download %q", "assets/a1/file.pdf")

	assert.Equal(t, KindDownload, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "download")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOfUncategorized(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestKindOfSeesThroughWrapping(t *testing.T) {
	inner := Errorf(KindNotFound, nil, "asset missing")
	wrapped := fmt.Errorf("lookup: %w", inner)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestIsKindTimeoutCountsAsExtraction(t *testing.T) {
	timeout := Errorf(KindExtractionTimeout, nil, "deadline exceeded")
	require.True(t, IsKind(timeout, KindExtractionTimeout))
	assert.True(t, IsKind(timeout, KindExtraction))
	assert.False(t, IsKind(timeout, KindDownload))

	plain := Errorf(KindExtraction, nil, "parser choked")
	assert.True(t, IsKind(plain, KindExtraction))
	assert.False(t, IsKind(plain, KindExtractionTimeout))
}
