/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

type defaultDatabaseManager struct {
	config          *ConnectionConfig
	foreignKeys     bool
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	lastError       error
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
	reconnectTries  int
	stopMonitor     context.CancelFunc
	monitorDone     chan struct{}
}

// ManagerOption customizes a manager created by NewDatabaseManager.
type ManagerOption func(*defaultDatabaseManager)

// WithForeignKeyConstraints toggles the inline foreign keys EnsureTables declares.
func WithForeignKeyConstraints(enabled bool) ManagerOption {
	return func(dm *defaultDatabaseManager) {
		dm.foreignKeys = enabled
	}
}

// WithLogger sets the manager logger at construction time.
func WithLogger(logger Logger) ManagerOption {
	return func(dm *defaultDatabaseManager) {
		dm.logger = logger
	}
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// If config is nil, a sensible default configuration is used.
func NewDatabaseManager(config *ConnectionConfig, opts ...ManagerOption) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	dm := &defaultDatabaseManager{
		config:          config,
		foreignKeys:     true,
		healthStatus:    &HealthStatus{},
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.connectLocked(ctx)
}

func (dm *defaultDatabaseManager) connectLocked(ctx context.Context) error {
	if dm.connected && dm.db != nil {
		return nil
	}

	var err error
	dm.sqlDB, dm.db, err = dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	dm.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()

	if err := dm.db.PingContext(ctxTimeout); err != nil {
		dm.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0

	if dm.config.HealthCheckInterval > 0 {
		dm.startHealthCheck()
	}

	if dm.logger != nil {
		dm.logger.Info("Database connected successfully:", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	}
	return nil
}

func (dm *defaultDatabaseManager) createConnection() (*sql.DB, *bun.DB, error) {
	if dm.config.ConnectTimeout <= 0 {
		dm.config.ConnectTimeout = 30 * time.Second
	}

	var (
		driver  string
		dsn     string
		dialect schema.Dialect
	)
	switch dm.config.Type {
	case "mysql":
		driver, dsn, dialect = "mysql", mysqlDSN(dm.config), mysqldialect.New()
	case "postgres", "postgresql":
		driver, dsn, dialect = "postgres", postgresDSN(dm.config), pgdialect.New()
	case "sqlite", "sqlite3":
		driver, dsn, dialect = sqliteshim.ShimName, sqliteDSN(dm.config), sqlitedialect.New()
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	db := bun.NewDB(sqlDB, dialect)

	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	} else {
		db.AddQueryHook(NewQueryHook("REVIEWKIT_SQL_LOG", os.Stdout))
	}
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{
			slowTime: dm.config.SlowQueryTime,
			logger:   dm.logger,
		})
	}
	return sqlDB, db, nil
}

func mysqlDSN(cfg *ConnectionConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.Local
	c.Timeout = cfg.ConnectTimeout
	c.ReadTimeout = cfg.ReadTimeout
	c.WriteTimeout = cfg.WriteTimeout
	_ = c.Apply(mysql.Charset("utf8mb4", ""))
	return c.FormatDSN()
}

func postgresDSN(cfg *ConnectionConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	query := url.Values{}
	query.Set("sslmode", cmp.Or(cfg.SSLMode, "disable"))
	query.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// sqliteDSN maps DBName to a file "<name>.db"; ":memory:" selects a shared
// in-memory database that lives as long as one pooled connection stays open.
func sqliteDSN(cfg *ConnectionConfig) string {
	switch {
	case cfg.DSN != "":
		return cfg.DSN
	case cfg.DBName == ":memory:":
		return "file::memory:?cache=shared"
	default:
		return fmt.Sprintf("%s.db", cfg.DBName)
	}
}

func (dm *defaultDatabaseManager) configureConnectionPool() {
	if dm.sqlDB == nil {
		return
	}

	dm.sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	dm.sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	dm.sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	dm.sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

// Disconnect stops the health monitor and closes the connection.
func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.stopHealthCheck()
	return dm.closeLocked()
}

func (dm *defaultDatabaseManager) closeLocked() error {
	if dm.db != nil {
		err := dm.db.Close()
		dm.db = nil
		dm.sqlDB = nil
		dm.connected = false

		if dm.logger != nil {
			if err != nil {
				dm.logger.Error("Failed to close database connection", "error", err)
			} else {
				dm.logger.Info("Database connection closed")
			}
		}

		return err
	}

	return nil
}

// Reconnect replaces the connection. A running health monitor keeps running.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.reconnectLocked(ctx)
}

func (dm *defaultDatabaseManager) reconnectLocked(ctx context.Context) error {
	if dm.logger != nil {
		dm.logger.Info("Attempting to reconnect to the database")
	}
	if err := dm.closeLocked(); err != nil {
		if dm.logger != nil {
			dm.logger.Warn("Error disconnecting existing connection", "error", err)
		}
	}
	return dm.connectLocked(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	db := dm.db
	dm.mu.RUnlock()

	if db == nil {
		return fmt.Errorf("database not connected")
	}

	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     dm.connected,
	}

	if dm.db == nil {
		status.Healthy = false
		status.LastError = "Database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := dm.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = err.Error()
		dm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		dm.lastError = nil
	}

	if dm.sqlDB != nil {
		stats := dm.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}

	dm.healthStatus = status
	dm.lastHealthCheck = start

	return status
}

// startHealthCheck runs the health monitor until the next Disconnect.
// Callers hold dm.mu.
func (dm *defaultDatabaseManager) startHealthCheck() {
	if dm.stopMonitor != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	dm.stopMonitor = cancel
	dm.monitorDone = done
	go dm.monitor(ctx, done)
}

// stopHealthCheck cancels the running monitor. Callers hold dm.mu.
func (dm *defaultDatabaseManager) stopHealthCheck() {
	if dm.stopMonitor == nil {
		return
	}
	dm.stopMonitor()
	dm.stopMonitor = nil
	dm.monitorDone = nil
}

func (dm *defaultDatabaseManager) monitor(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		checkCtx, cancel := context.WithTimeout(ctx, time.Second*10)
		status := dm.HealthCheck(checkCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if !status.Healthy && dm.config.EnableReconnect {
			dm.handleReconnect(ctx)
		}
	}
}

// handleReconnect waits ReconnectInterval and reconnects, giving up after
// MaxReconnectTries failed attempts in a row. A successful Connect resets
// the counter.
func (dm *defaultDatabaseManager) handleReconnect(ctx context.Context) {
	dm.mu.Lock()
	if dm.reconnectTries >= dm.config.MaxReconnectTries {
		tries := dm.reconnectTries
		dm.mu.Unlock()
		if dm.logger != nil {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", tries)
		}
		return
	}
	dm.reconnectTries++
	try := dm.reconnectTries
	dm.mu.Unlock()

	if dm.logger != nil {
		dm.logger.Info("Starting database reconnect", "try", try)
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(dm.config.ReconnectInterval):
	}

	connectCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()

	dm.mu.Lock()
	if ctx.Err() != nil {
		dm.mu.Unlock()
		return
	}
	err := dm.reconnectLocked(connectCtx)
	dm.mu.Unlock()
	if err != nil {
		if dm.logger != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", try)
		}
		return
	}
	if dm.logger != nil {
		dm.logger.Info("Reconnect succeeded")
	}
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	dm.mu.RLock()
	sqlDB := dm.sqlDB
	dm.mu.RUnlock()

	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// EnsureTables creates every registered table that does not exist yet.
func (dm *defaultDatabaseManager) EnsureTables(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return NewTableManager(db, dm.logger).WithForeignKeys(dm.foreignKeys).CreateAll(ctx)
}

// DropTables drops every registered table.
func (dm *defaultDatabaseManager) DropTables(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return NewTableManager(db, dm.logger).DropAll(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}

type slowQueryHook struct {
	slowTime time.Duration
	logger   Logger
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}

	duration := time.Since(event.StartTime)
	if duration > h.slowTime && h.logger != nil {
		h.logger.Warn("Database slow query detected",
			"duration", duration,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}
