package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(int) ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func TestRunRejectsUnknownAndMissingCommand(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "usage:")

	out.Reset()
	assert.Error(t, run(context.Background(), []string{"drop-tables"}, &out))
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(context.Background(), []string{"create-admin", "-email", "a@campus.edu"}, &out))
	assert.Error(t, run(context.Background(), []string{"unlock"}, &out))
}

func TestAdminPasswordPrompt(t *testing.T) {
	t.Setenv("AUTHCTL_PASSWORD", "")
	var out bytes.Buffer

	stubPasswords(t, "registrar-pass", "registrar-pass")
	pw, err := adminPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "registrar-pass", pw)
	assert.Contains(t, out.String(), "Admin password:")

	stubPasswords(t, "one", "two")
	_, err = adminPassword(&out)
	assert.Error(t, err)
}

func TestAdminPasswordFromEnv(t *testing.T) {
	t.Setenv("AUTHCTL_PASSWORD", "from-env-pass")
	pw, err := adminPassword(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "from-env-pass", pw)
}

func TestCreateAdminAgainstMemoryStore(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_ALLOW_EPHEMERAL", "true")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("BCRYPT_ROUNDS", "4")
	t.Setenv("ALLOW_WEAK_BCRYPT", "true")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("AUTHCTL_PASSWORD", "registrar-pass")

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"create-admin", "-config", "", "-email", "Dean@Campus.edu", "-first", "Dean", "-last", "Office",
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "created admin dean@campus.edu")
}
