package webserver

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"officeconv/internal/runs"
	"officeconv/internal/soffice"
)

func TestSafeJoin(t *testing.T) {
	root := filepath.Join("data", "prepared")

	tests := []struct {
		name        string
		rel         string
		expected    string
		expectError bool
	}{
		{
			name:     "plain file",
			rel:      "report.docx",
			expected: filepath.Join(root, "report.docx"),
		},
		{
			name:     "nested file",
			rel:      "2024/q1/report.docx",
			expected: filepath.Join(root, "2024", "q1", "report.docx"),
		},
		{
			name:     "leading slash from route wildcard",
			rel:      "/report.docx",
			expected: filepath.Join(root, "report.docx"),
		},
		{
			name:        "empty",
			rel:         "",
			expectError: true,
		},
		{
			name:        "slash only",
			rel:         "/",
			expectError: true,
		},
		{
			name:        "parent traversal",
			rel:         "../secrets.txt",
			expectError: true,
		},
		{
			name:        "nested traversal",
			rel:         "a/../../secrets.txt",
			expectError: true,
		},
		{
			name:        "current directory",
			rel:         ".",
			expectError: true,
		},
		{
			name:        "dot slash",
			rel:         "./",
			expectError: true,
		},
		{
			name:        "folds to current directory",
			rel:         "a/..",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJoin(root, tt.rel)

			if tt.expectError {
				assert.Error(t, err)

				var vErr *validationError
				assert.ErrorAs(t, err, &vErr, "traversal rejections map to 400")

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedType   ErrorType
	}{
		{
			name:           "validation",
			err:            invalidArgument("unknown tree %q", "archive"),
			expectedStatus: http.StatusBadRequest,
			expectedType:   ErrorTypeValidation,
		},
		{
			name:           "active run conflict",
			err:            runs.ErrRunActive,
			expectedStatus: http.StatusConflict,
			expectedType:   ErrorTypeConflict,
		},
		{
			name:           "unknown run",
			err:            runs.ErrRunNotFound,
			expectedStatus: http.StatusNotFound,
			expectedType:   ErrorTypeNotFound,
		},
		{
			name:           "converter missing",
			err:            soffice.ErrBinaryNotFound,
			expectedStatus: http.StatusServiceUnavailable,
			expectedType:   ErrorTypeConverter,
		},
		{
			name:           "missing file",
			err:            fs.ErrNotExist,
			expectedStatus: http.StatusNotFound,
			expectedType:   ErrorTypeNotFound,
		},
		{
			name:           "wrapped missing file",
			err:            errors.Join(errors.New("stat"), fs.ErrNotExist),
			expectedStatus: http.StatusNotFound,
			expectedType:   ErrorTypeNotFound,
		},
		{
			name:           "anything else",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
			expectedType:   ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := CategorizeError(tt.err)

			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expectedType, resp.Type)
			assert.NotEmpty(t, resp.Code)
			assert.NotEmpty(t, resp.Detail)
		})
	}
}
