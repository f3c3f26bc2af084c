package postgres

import (
	"database/sql"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault/tests"

	postgrestest "github.com/quartz-labs/quartz-protocol/pkg/database/postgres/test"

	_ "github.com/jackc/pgx/v4/stdlib"
)

const (
	// Used for testing ONLY, the table and migrations are external to this repository
	tableCreate = `
		CREATE TABLE quartz__core_vault(
			id SERIAL NOT NULL PRIMARY KEY,

			address TEXT NOT NULL,
			bump INTEGER NOT NULL,

			owner TEXT NOT NULL,

			spend_limit_per_transaction BIGINT NOT NULL,
			spend_limit_per_timeframe BIGINT NOT NULL,
			remaining_spend_limit_per_timeframe BIGINT NOT NULL,
			next_timeframe_reset_timestamp BIGINT NOT NULL,
			timeframe_in_seconds BIGINT NOT NULL,

			last_updated_at TIMESTAMP WITH TIME ZONE,

			CONSTRAINT quartz__core_vault__uniq__address UNIQUE (address),
			CONSTRAINT quartz__core_vault__uniq__owner UNIQUE (owner)
		);
	`

	// Used for testing ONLY, the table and migrations are external to this repository
	tableDestroy = `
		DROP TABLE quartz__core_vault;
	`
)

var (
	testStore vault.Store
	teardown  func()
)

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("Error creating docker pool")
		os.Exit(1)
	}

	var cleanUpFunc func()
	db, cleanUpFunc, err := postgrestest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Error("Error starting postgres image")
		os.Exit(1)
	}
	defer db.Close()

	if err := createTestTables(db); err != nil {
		logrus.StandardLogger().WithError(err).Error("Error creating test tables")
		cleanUpFunc()
		os.Exit(1)
	}

	testStore = New(db)
	teardown = func() {
		if pc := recover(); pc != nil {
			cleanUpFunc()
			panic(pc)
		}

		if err := resetTestTables(db); err != nil {
			logrus.StandardLogger().WithError(err).Error("Error resetting test tables")
			cleanUpFunc()
			os.Exit(1)
		}
	}

	code := m.Run()
	cleanUpFunc()
	os.Exit(code)
}

func TestVaultPostgresStore(t *testing.T) {
	tests.RunTests(t, testStore, teardown)
}

func createTestTables(db *sql.DB) error {
	_, err := db.Exec(tableCreate)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not create test tables")
		return err
	}
	return nil
}

func resetTestTables(db *sql.DB) error {
	_, err := db.Exec(tableDestroy)
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("could not drop test tables")
		return err
	}

	return createTestTables(db)
}
