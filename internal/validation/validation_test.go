package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bkmrk/internal/models"
)

func ptr(value string) *string {
	return &value
}

func TestStruct(t *testing.T) {
	v := New()

	type tTestCase struct {
		name            string
		input           interface{}
		expectedDetails map[string]string
	}
	testCases := []tTestCase{
		{
			name:  "valid_auth_request",
			input: models.AuthRequest{Email: "ann@x.com", Password: "secret"},
		},
		{
			name:  "empty_auth_request",
			input: models.AuthRequest{},
			expectedDetails: map[string]string{
				"email":    "is required",
				"password": "is required",
			},
		},
		{
			name:  "bad_email",
			input: models.AuthRequest{Email: "not-an-email", Password: "secret"},
			expectedDetails: map[string]string{
				"email": "must be a valid email",
			},
		},
		{
			name:  "password_too_long",
			input: models.AuthRequest{Email: "ann@x.com", Password: strings.Repeat("p", 73)},
			expectedDetails: map[string]string{
				"password": "must be at most 72 characters long",
			},
		},
		{
			name:  "empty_user_patch",
			input: models.EditUserRequest{},
		},
		{
			name:  "user_patch_with_bad_email",
			input: models.EditUserRequest{Email: ptr("")},
			expectedDetails: map[string]string{
				"email": "must be a valid email",
			},
		},
		{
			name:  "bookmark_without_link",
			input: models.CreateBookmarkRequest{Title: "Go"},
			expectedDetails: map[string]string{
				"link": "is required",
			},
		},
		{
			name:  "bookmark_patch_with_empty_title",
			input: models.EditBookmarkRequest{Title: ptr("")},
			expectedDetails: map[string]string{
				"title": "must not be empty",
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := v.Struct(testCase.input)
			if testCase.expectedDetails == nil {
				assert.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, ErrValidation)
			details, ok := Details(err)
			require.True(t, ok)
			assert.Equal(t, testCase.expectedDetails, details)
		})
	}
}

func TestStructRejectsNonStruct(t *testing.T) {
	err := New().Struct("not a struct")
	require.Error(t, err)
	_, ok := Details(err)
	assert.False(t, ok)
}
