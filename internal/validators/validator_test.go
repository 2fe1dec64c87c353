package validators

import (
	"net/http"
	"testing"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCreateUser(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(models.CreateUserRequest{Username: "alice", Email: "a@b.co", Password: "abc!1234"}))

	err := v.Validate(models.CreateUserRequest{Username: "al", Email: "nope", Password: "has space"})
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.Equal(t, "Username must be 3-20 characters long. Email format is invalid. "+
		"Password must be 4-12 characters and only contain letters, numbers, and !@#$%", he.Message)
}

func TestPasswordRule(t *testing.T) {
	v := NewValidator()
	for pw, ok := range map[string]bool{
		"abcd":          true,
		"ABC123!@#$%x":  true,
		"abc":           false,
		"abcdefghijklm": false,
		"pass word":     false,
		"pässword":      false,
	} {
		err := v.Validate(models.CreateUserRequest{Username: "alice", Email: "a@b.co", Password: pw})
		assert.Equal(t, ok, err == nil, pw)
	}
}

func TestObjectIDRule(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(models.ToggleLikeRequest{TargetID: "64b7f0c2a1b2c3d4e5f60718", TargetType: "post"}))
	assert.Error(t, v.Validate(models.ToggleLikeRequest{TargetID: "123", TargetType: "post"}))
	assert.Error(t, v.Validate(models.ToggleLikeRequest{TargetID: "64b7f0c2a1b2c3d4e5f60718", TargetType: "forum"}))
}
