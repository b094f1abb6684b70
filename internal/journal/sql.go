package journal

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/tmandere/stagehand/internal/journal/migrations"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported journal database types.
const (
	DBTypePostgres = "POSTGRES"
	DBTypeMySQL    = "MYSQL"
	DBTypeSQLite   = "SQLITE"
)

// SQLJournal appends process events to a process_events table. It speaks
// three dialects through database/sql; the schema is managed by embedded
// migrations.
type SQLJournal struct {
	db     *sql.DB
	dbType string
}

// Open runs the migrations for the given database type and returns a ready
// journal. For SQLite the url is a file path; for Postgres and MySQL it is a
// DSN in the scheme://... form.
func Open(dbType, url string) (*SQLJournal, error) {
	var db *sql.DB
	var err error
	switch dbType {
	case DBTypePostgres:
		if url == "" {
			return nil, fmt.Errorf("journal database url is required for POSTGRES")
		}
		if err = runMigrationsFromEmbed("postgres", url); err != nil {
			return nil, fmt.Errorf("journal migration failed: %w", err)
		}
		db, err = sql.Open("postgres", url)
	case DBTypeMySQL:
		if url == "" {
			return nil, fmt.Errorf("journal database url is required for MYSQL")
		}
		if !strings.HasPrefix(url, "mysql://") {
			return nil, fmt.Errorf("journal database url must start with mysql:// for MYSQL")
		}
		if !strings.Contains(url, "parseTime=true") {
			return nil, fmt.Errorf("journal database url must contain parseTime=true for MYSQL")
		}
		if err = runMigrationsFromEmbed("mysql", url); err != nil {
			return nil, fmt.Errorf("journal migration failed: %w", err)
		}
		db, err = sql.Open("mysql", strings.Replace(url, "mysql://", "", 1))
	case DBTypeSQLite:
		if url == "" {
			return nil, fmt.Errorf("journal database file is required for SQLITE")
		}
		if err = runMigrationsFromEmbed("sqlite3", "sqlite3://"+url); err != nil {
			return nil, fmt.Errorf("journal migration failed: %w", err)
		}
		db, err = sql.Open("sqlite3", url)
	default:
		return nil, fmt.Errorf("unknown journal database type %q", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("journal database open failed: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("journal database ping failed: %w", err)
	}
	slog.Info("Process journal opened", "db_type", dbType)
	return &SQLJournal{db: db, dbType: dbType}, nil
}

func runMigrationsFromEmbed(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// placeholder returns the bind variable for the given index. Postgres uses
// $1, $2... while MySQL and SQLite use ?
func (j *SQLJournal) placeholder(i int) string {
	if j.dbType == DBTypePostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (j *SQLJournal) supportsReturning() bool {
	return j.dbType == DBTypePostgres
}

// Record inserts one event and fills in its assigned id.
func (j *SQLJournal) Record(ev *domain.ProcessEvent) error {
	base := `
		INSERT INTO process_events (
			process_id, workflow, task_id, type, detail, created
		) VALUES (
			` + j.placeholder(1) + `, ` + j.placeholder(2) + `, ` + j.placeholder(3) + `, ` + j.placeholder(4) + `, ` + j.placeholder(5) + `, ` + j.placeholder(6) + `
		)`
	var err error
	if j.supportsReturning() {
		query := base + " RETURNING id"
		err = j.db.QueryRow(
			query,
			ev.ProcessID,
			ev.Workflow,
			ev.TaskID,
			ev.Type,
			ev.Detail,
			ev.Created,
		).Scan(&ev.ID)
	} else {
		res, e := j.db.Exec(base,
			ev.ProcessID,
			ev.Workflow,
			ev.TaskID,
			ev.Type,
			ev.Detail,
			ev.Created,
		)
		if e != nil {
			err = e
		} else {
			id, e2 := res.LastInsertId()
			if e2 != nil {
				err = e2
			} else {
				ev.ID = id
			}
		}
	}

	if err != nil {
		slog.Error("Failed to record process event", "process_id", ev.ProcessID, "type", ev.Type, "error", err)
	}
	return err
}

// EventsByProcess returns the events of one instance, newest first.
func (j *SQLJournal) EventsByProcess(processID string, limit int) ([]domain.ProcessEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, process_id, workflow, task_id, type, detail, created
		FROM process_events
		WHERE process_id = ` + j.placeholder(1) + `
		ORDER BY id DESC
		LIMIT ` + j.placeholder(2)
	rows, err := j.db.Query(query, processID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Recent returns the latest events across every instance, newest first.
func (j *SQLJournal) Recent(limit int) ([]domain.ProcessEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, process_id, workflow, task_id, type, detail, created
		FROM process_events
		ORDER BY id DESC
		LIMIT ` + j.placeholder(1)
	rows, err := j.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.ProcessEvent, error) {
	var events []domain.ProcessEvent
	for rows.Next() {
		var ev domain.ProcessEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.ProcessID,
			&ev.Workflow,
			&ev.TaskID,
			&ev.Type,
			&ev.Detail,
			&ev.Created,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (j *SQLJournal) Close() error {
	return j.db.Close()
}
