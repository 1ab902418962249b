package postgresql_test

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/migrations"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL and recreates the schema. Tests
// are skipped when the variable is unset.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolConfig{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, `DROP TABLE IF EXISTS audit_entries, payroll_month_locks, payrolls, salary_structures,
		leave_requests, leave_types, attendances, employees, departments, users CASCADE`)
	require.NoError(t, err)

	names, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	sort.Strings(names)
	for _, name := range names {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		_, err = db.Exec(ctx, string(body))
		require.NoError(t, err, name)
	}
	return db
}

// seedEmployee inserts a user and an employee row in dept (created when missing).
func seedEmployee(t *testing.T, db *database.DB, userID, dept, hireDate string) {
	t.Helper()
	ctx := context.Background()
	_, err := db.Exec(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, userID, userID+"@example.com")
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO departments (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, dept, strings.ToUpper(dept))
	require.NoError(t, err)
	_, err = db.Exec(ctx, `
		INSERT INTO employees (id, user_id, employee_code, full_name, department_id, hire_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		"emp-"+userID, userID, "E-"+userID, "Employee "+userID, dept, hireDate)
	require.NoError(t, err)
}
