package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// RunMigrate handles `migrate up`, `migrate down N` and `migrate version`.
func RunMigrate(dsn string, args []string, out io.Writer) error {
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "up":
		if err := db.Migrate(dsn); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("migrate down: invalid steps %q", args[1])
			}
			steps = n
		}
		if err := db.MigrateDown(dsn, steps); err != nil {
			return err
		}
		fmt.Fprintf(out, "rolled back %d migration(s)\n", steps)
	case "version":
		v, dirty, err := db.MigrationVersion(dsn)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version=%d dirty=%t\n", v, dirty)
	default:
		return fmt.Errorf("migrate: unknown command %q", cmd)
	}
	return nil
}
