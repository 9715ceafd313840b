package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	version uint
	verErr  error
	closed  bool
}

func (f *fakeMigrator) Up() error { return f.upErr }

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, f.verErr }

func (f *fakeMigrator) Close() (error, error) {
	f.closed = true
	return nil, nil
}

func runMigrate(t *testing.T, m *fakeMigrator, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cli := NewMigrateCLIWith(func() (Migrator, error) { return m, nil })
	code := cli.Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestMigrateUpToleratesNoChange(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange, version: 1}
	code, out, _ := runMigrate(t, m, "up")
	require.Equal(t, 0, code)
	assert.Equal(t, "version=1 dirty=false\n", out)
	assert.True(t, m.closed)
}

func TestMigrateDownIsOneStep(t *testing.T) {
	m := &fakeMigrator{verErr: migrate.ErrNilVersion}
	code, out, _ := runMigrate(t, m, "down")
	require.Equal(t, 0, code)
	assert.Equal(t, []int{-1}, m.steps)
	assert.Equal(t, "version=none\n", out)
}

func TestMigrateFailures(t *testing.T) {
	code, _, errOut := runMigrate(t, &fakeMigrator{upErr: errors.New("syntax error")}, "up")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "syntax error")

	code, _, _ = runMigrate(t, &fakeMigrator{}, "sideways")
	assert.Equal(t, 2, code)

	code, _, _ = runMigrate(t, &fakeMigrator{})
	assert.Equal(t, 2, code)

	var stderr bytes.Buffer
	cli := NewMigrateCLIWith(func() (Migrator, error) { return nil, errors.New("no db") })
	assert.Equal(t, 1, cli.Run([]string{"up"}, &bytes.Buffer{}, &stderr))
	assert.Contains(t, stderr.String(), "no db")
}

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/ledger?sslmode=disable", pgx5URL("postgres://u:p@db:5432/ledger?sslmode=disable"))
	assert.Equal(t, "pgx5://db/ledger", pgx5URL("postgresql://db/ledger"))
	assert.Equal(t, "pgx5://db/ledger", pgx5URL("pgx5://db/ledger"))
}
