package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("owner@example.com"))
	assert.NoError(t, ValidateEmail("a.b+c@sub.example.co"))
	assert.Error(t, ValidateEmail("owner@"))
	assert.Error(t, ValidateEmail("owner example.com"))
}
