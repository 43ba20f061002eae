package system

import (
	"fmt"

	"github.com/julianstephens/daystreak/internal/cli"
	"github.com/julianstephens/daystreak/internal/storage"
)

type MigrateCmd struct {
	Status bool `help:"Only report the schema version."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	m, ok := ctx.Store.(storage.Migrator)
	if !ok {
		return fmt.Errorf("migrate command only supports SQLite and PostgreSQL storage")
	}
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	if c.Status {
		st, err := m.SchemaStatus()
		if err != nil {
			return err
		}
		ctx.Printf("Schema version %d of %d (%d pending)\n", st.Current, st.Latest, len(st.Pending))
		for _, p := range st.Pending {
			ctx.Printf("  %03d_%s\n", p.Version, p.Name)
		}
		return nil
	}

	count, err := m.Migrate(func(msg string) { ctx.Println(msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
