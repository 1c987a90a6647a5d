package integration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/iyhunko/eco-consumo/internal/config"
	sqlrepo "github.com/iyhunko/eco-consumo/internal/repository/sql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const migrationsPath = "../migrations"

// TestDB holds a migrated PostgreSQL container and the URL to reach it.
type TestDB struct {
	URL      string
	Pool     *dockertest.Pool
	Resource *dockertest.Resource

	conns []*sql.DB
}

// SetupTestDB starts PostgreSQL with dockertest and applies the migrations.
// The test is skipped when Docker is not reachable.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Could not construct docker pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("Could not connect to docker: %s", err)
	}
	pool.MaxWait = 120 * time.Second

	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		t.Fatalf("Migrations directory not found: %s", migrationsPath)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_USER=testuser",
			"POSTGRES_DB=testdb",
			"listen_addresses='*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}

	// Set container to expire after 2 minutes to avoid orphaned containers
	if err := resource.Expire(120); err != nil {
		t.Fatalf("Could not set expiration: %s", err)
	}

	tdb := &TestDB{
		URL:      fmt.Sprintf("postgres://testuser:secret@%s/testdb?sslmode=disable", resource.GetHostPort("5432/tcp")),
		Pool:     pool,
		Resource: resource,
	}
	log.Println("Connecting to database on url: ", tdb.URL)

	var db *sql.DB
	if err := pool.Retry(func() error {
		var err error
		db, err = sqlrepo.OpenDB(context.Background(), tdb.dbConfig("pgx"))
		return err
	}); err != nil {
		_ = pool.Purge(resource)
		t.Fatalf("Could not connect to database: %s", err)
	}
	tdb.conns = append(tdb.conns, db)

	if err := sqlrepo.RunMigrations(db, "file://"+migrationsPath); err != nil {
		tdb.Cleanup(t)
		t.Fatalf("Could not run migrations: %s", err)
	}

	return tdb
}

func (tdb *TestDB) dbConfig(driver string) config.DB {
	return config.DB{
		URL:            tdb.URL,
		Driver:         driver,
		MigrationsPath: "file://" + migrationsPath,
	}
}

// Open returns a connection through the given driver ("pgx" or "postgres").
func (tdb *TestDB) Open(t *testing.T, driver string) *sql.DB {
	t.Helper()
	db, err := sqlrepo.OpenDB(context.Background(), tdb.dbConfig(driver))
	if err != nil {
		t.Fatalf("Could not open %s connection: %s", driver, err)
	}
	tdb.conns = append(tdb.conns, db)
	return db
}

// Cleanup closes every connection and purges the Docker container
func (tdb *TestDB) Cleanup(t *testing.T) {
	t.Helper()

	for _, db := range tdb.conns {
		if err := db.Close(); err != nil {
			t.Errorf("Could not close database: %s", err)
		}
	}

	if tdb.Pool != nil && tdb.Resource != nil {
		if err := tdb.Pool.Purge(tdb.Resource); err != nil {
			t.Errorf("Could not purge resource: %s", err)
		}
	}
}

// TruncateProducts empties the products table between tests.
func (tdb *TestDB) TruncateProducts(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), "TRUNCATE TABLE products"); err != nil {
		t.Fatalf("Could not truncate table products: %s", err)
	}
}
