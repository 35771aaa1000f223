package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPassword(t *testing.T) {
	_, err := checkPassword("short")
	assert.Error(t, err)

	p, err := checkPassword("long-enough")
	require.NoError(t, err)
	assert.Equal(t, "long-enough", p)
}

func TestSubcommandsRequireFlags(t *testing.T) {
	ctx := context.Background()

	err := addUser(ctx, nil, []string{"-email", "a@b.c"})
	assert.EqualError(t, err, "-username and -email are required")

	err = addUser(ctx, nil, []string{"-username", "root"})
	assert.EqualError(t, err, "-username and -email are required")

	err = resetPassword(ctx, nil, nil)
	assert.EqualError(t, err, "-username is required")

	assert.Error(t, addUser(ctx, nil, []string{"-unknown"}))
}
