package main

import (
	"path/filepath"
	"testing"

	"go-outreach/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevToken(t *testing.T) {
	token, err := devToken("seed-secret", "demo-user")
	require.NoError(t, err)

	claims, err := utils.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "demo-user", claims.UserID)
	assert.Equal(t, []string{"admin"}, claims.Roles)

	utils.SetSecret("other-secret")
	_, err = utils.ValidateToken(token)
	assert.Error(t, err)
}

func TestReadSeedDefaultsUser(t *testing.T) {
	data, err := readSeed(filepath.Join("data", "demo.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, data.UserID)
	assert.NotEmpty(t, data.Rules)
}
