package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BartekS5/lakecheck/pkg/logger"
)

// database/sql driver names accepted by ConnectSQL.
const (
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// ConnectSQL opens and pings a database. sqlite connections are limited to a
// single open connection so writes never hit SQLITE_BUSY.
func ConnectSQL(ctx context.Context, driver, connString string) (*sql.DB, error) {
	switch driver {
	case DriverSQLServer, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported SQL driver '%s'", driver)
	}

	db, err := sql.Open(driver, connString)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s database (ping failed): %w", driver, err)
	}

	logger.Infof("Successfully connected to %s database.", driver)
	return db, nil
}

func ConnectMongo(ctx context.Context, connString string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	logger.Info("Successfully connected to MongoDB.")
	return client, nil
}
