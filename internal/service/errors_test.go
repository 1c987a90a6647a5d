package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"service error", newError(KindUpstreamTimeout, cause), KindUpstreamTimeout},
		{"wrapped service error", fmt.Errorf("lookup: %w", newError(KindStorageQueryFailed, cause)), KindStorageQueryFailed},
		{"foreign error", cause, KindUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindStorageWriteFailed, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "storage_write_failed: boom", err.Error())
	assert.Equal(t, "missing_barcode", newError(KindMissingBarcode, nil).Error())
}

func TestNormalizeBarcode(t *testing.T) {
	assert.Equal(t, "0001", NormalizeBarcode(" 00 01\t\n"))
	assert.Equal(t, "7891000", NormalizeBarcode("7891 000"))
	assert.Equal(t, "", NormalizeBarcode(" \t\r\n"))
}
