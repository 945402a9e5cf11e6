package migration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/logger"
)

// advisoryLockKey serializes concurrent migrators on the same database
const advisoryLockKey = 72_410_001

// Migration is one embedded schema change
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations
type AppliedMigration struct {
	Version   int       `db:"version"`
	Name      string    `db:"name"`
	Checksum  string    `db:"checksum"`
	AppliedAt time.Time `db:"applied_at"`
}

// Load returns the embedded migrations ordered by version
func Load() ([]Migration, error) {
	return loadFrom(embeddedMigrations, migrationsDir)
}

func loadFrom(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	seen := make(map[int]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(entry.Name(), ".up.sql")
		prefix, name, ok := strings.Cut(base, "_")
		if !ok {
			return nil, ierr.NewErrorf("migration %s has no version prefix", entry.Name()).
				Mark(ierr.ErrValidation)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, ierr.NewErrorf("migration %s has an invalid version", entry.Name()).
				Mark(ierr.ErrValidation)
		}
		if other, dup := seen[version]; dup {
			return nil, ierr.NewErrorf("migrations %s and %s share version %d", other, entry.Name(), version).
				Mark(ierr.ErrValidation)
		}
		seen[version] = entry.Name()

		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		sum := sha256.Sum256(body)
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			SQL:      string(body),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Runner applies pending embedded migrations
type Runner struct {
	db     *sqlx.DB
	logger *logger.Logger
}

func NewRunner(db *sqlx.DB, logger *logger.Logger) *Runner {
	return &Runner{db: db, logger: logger}
}

// Pending returns the migrations that have not been applied yet
func (r *Runner) Pending(ctx context.Context) ([]Migration, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	all, err := Load()
	if err != nil {
		return nil, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	return pending(all, applied)
}

// Up applies every pending migration, each in its own transaction. An
// advisory lock keeps two migrators from racing.
func (r *Runner) Up(ctx context.Context) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, err
	}

	conn, err := r.db.Connx(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", advisoryLockKey); err != nil {
		return 0, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", advisoryLockKey); err != nil {
			r.logger.Errorw("failed to release migration lock", "error", err)
		}
	}()

	all, err := Load()
	if err != nil {
		return 0, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}
	todo, err := pending(all, applied)
	if err != nil {
		return 0, err
	}

	if len(todo) == 0 {
		r.logger.Infow("schema up to date", "migrations", len(all))
		return 0, nil
	}

	for _, m := range todo {
		r.logger.Infow("applying migration", "version", m.Version, "name", m.Name)

		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			return 0, fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("apply migration %d_%s: %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES ($1, $2, $3, NOW())`,
			m.Version, m.Name, m.Checksum,
		); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	r.logger.Infow("migrations applied", "count", len(todo))
	return len(todo), nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER      PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			checksum   VARCHAR(64)  NOT NULL,
			applied_at TIMESTAMPTZ  NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) ([]AppliedMigration, error) {
	var rows []AppliedMigration
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT version, name, checksum, applied_at FROM schema_migrations ORDER BY version`,
	); err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	return rows, nil
}

// pending filters out applied migrations and refuses to continue when an
// applied file was edited afterwards.
func pending(all []Migration, applied []AppliedMigration) ([]Migration, error) {
	done := make(map[int]AppliedMigration, len(applied))
	for _, a := range applied {
		done[a.Version] = a
	}

	var todo []Migration
	for _, m := range all {
		a, ok := done[m.Version]
		if !ok {
			todo = append(todo, m)
			continue
		}
		if a.Checksum != m.Checksum {
			return nil, ierr.NewErrorf("migration %d_%s was modified after it was applied", m.Version, m.Name).
				WithHint("Add a new migration instead of editing an applied one").
				Mark(ierr.ErrInvalidOperation)
		}
	}
	return todo, nil
}
