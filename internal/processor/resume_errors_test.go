package processor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResumeProcessError(t *testing.T) {
	err := NewDownloadError("uuid-1", "connection reset")

	assert.ErrorIs(t, err, ErrResumeDownloadFailed)
	assert.NotErrorIs(t, err, ErrStoreTextFailed)
	assert.Contains(t, err.Error(), "uuid-1")
	assert.Contains(t, err.Error(), "connection reset")

	var pe *ResumeProcessError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &pe), "包装后仍应能取出 ResumeProcessError")
	assert.Equal(t, "download", pe.Op)

	noDetail := NewDatabaseError("uuid-2", "")
	assert.NotContains(t, noDetail.Error(), "): ")
}

func TestErrorConstructors(t *testing.T) {
	cases := map[string]struct {
		err  error
		base error
	}{
		"store":   {NewStoreError("u", "d"), ErrStoreTextFailed},
		"upload":  {NewUploadError("u", "d"), ErrStoreFileFailed},
		"publish": {NewPublishError("u", "d"), ErrPublishMessageFailed},
		"update":  {NewUpdateError("u", "d"), ErrUpdateStatusFailed},
		"db":      {NewDatabaseError("u", "d"), ErrDatabaseFailed},
		"score":   {NewScoreError("u", "d"), ErrScoreFailed},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.base)
		})
	}
}

func TestDuplicateFileError(t *testing.T) {
	var err error = &DuplicateFileError{ExistingSubmissionUUID: "old-uuid"}
	assert.ErrorIs(t, err, ErrDuplicateFile)
	assert.Contains(t, err.Error(), "old-uuid")

	var dup *DuplicateFileError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, "old-uuid", dup.ExistingSubmissionUUID)
}
