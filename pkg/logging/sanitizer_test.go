package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeConnectionString(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"url credentials", "postgres://alice:hunter2@db:5432/sales"},
		{"password param", "host=db port=5432 password=hunter2 dbname=sales"},
		{"pwd param", "server=db;pwd=hunter2;database=sales"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeConnectionString(tt.in)
			assert.NotContains(t, got, "hunter2")
			assert.Contains(t, got, RedactedText)
		})
	}
}

func TestSanitizeConnectionStringEmpty(t *testing.T) {
	assert.Equal(t, "", SanitizeConnectionString(""))
}

func TestSanitizeErrorRedactsDSN(t *testing.T) {
	err := errors.New(`connect failed: dial "postgres://alice:hunter2@db:5432/sales": refused`)
	got := SanitizeError(err)
	assert.NotContains(t, got, "hunter2")
}

func TestSanitizeErrorRedactsAPIKey(t *testing.T) {
	err := errors.New("request rejected: api_key=sk-abcdefghijklmnopqrstuvwxyz123456")
	got := SanitizeError(err)
	assert.NotContains(t, got, "sk-abcdefghijklmnopqrstuvwxyz123456")
}

func TestSanitizeErrorNil(t *testing.T) {
	assert.Equal(t, "", SanitizeError(nil))
}

func TestSanitizeErrorLeavesPlainText(t *testing.T) {
	err := errors.New("relation \"orders\" does not exist")
	assert.Equal(t, err.Error(), SanitizeError(err))
}
