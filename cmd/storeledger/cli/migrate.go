package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/odyssey-erp/storeledger/migrations"
)

// Migrator is the golang-migrate subset the CLI drives.
type Migrator interface {
	Up() error
	Steps(n int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// MigrateCLI applies the embedded schema.
type MigrateCLI struct {
	open func() (Migrator, error)
}

// NewMigrateCLI opens migrations against dsn lazily, on first command.
func NewMigrateCLI(dsn string) *MigrateCLI {
	return NewMigrateCLIWith(func() (Migrator, error) {
		src, err := iofs.New(migrations.FS, ".")
		if err != nil {
			return nil, err
		}
		return migrate.NewWithSourceInstance("iofs", src, pgx5URL(dsn))
	})
}

// NewMigrateCLIWith builds a MigrateCLI around a custom opener.
func NewMigrateCLIWith(open func() (Migrator, error)) *MigrateCLI {
	return &MigrateCLI{open: open}
}

// pgx5URL rewrites a postgres DSN to the scheme the pgx/v5 driver registers.
func pgx5URL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Run executes `migrate up|down|version` and returns an exit code.
func (c *MigrateCLI) Run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "usage: storeledger migrate up|down|version")
		return 2
	}
	cmd := args[0]
	if cmd != "up" && cmd != "down" && cmd != "version" {
		fmt.Fprintf(stderr, "unknown migrate command %q\n", cmd)
		return 2
	}

	m, err := c.open()
	if err != nil {
		fmt.Fprintln(stderr, "open migrations:", err)
		return 1
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			fmt.Fprintln(stderr, "close migrations:", err)
		}
	}()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		// one step only; dropping everything is a manual decision
		err = m.Steps(-1)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintln(stderr, cmd+":", err)
		return 1
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Fprintln(stdout, "version=none")
	case err != nil:
		fmt.Fprintln(stderr, "version:", err)
		return 1
	default:
		fmt.Fprintf(stdout, "version=%d dirty=%t\n", version, dirty)
	}
	return 0
}
