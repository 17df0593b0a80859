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
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testParent struct {
	bun.BaseModel `bun:"table:test_parents"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name"`
}

type testChild struct {
	bun.BaseModel `bun:"table:test_children"`

	ID       int64 `bun:"id,pk,autoincrement"`
	ParentID int64 `bun:"parent_id"`
}

var testChildFK = ForeignKeyConstraint{
	Table:           "test_children",
	Column:          "parent_id",
	ReferenceTable:  "test_parents",
	ReferenceColumn: "id",
	OnDelete:        "cascade",
}

func memoryConfig() *Config {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "sqlite"
	cfg.ConnectionConfig.DSN = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	cfg.ConnectionConfig.MaxOpenConns = 1
	cfg.ConnectionConfig.MaxIdleConns = 1
	cfg.ConnectionConfig.ConnMaxLifetime = 0
	cfg.ConnectionConfig.ConnMaxIdleTime = 0
	cfg.ConnectionConfig.HealthCheckInterval = 0
	return cfg
}

func connectMemory(t *testing.T) AbstractDatabaseManager {
	t.Helper()
	cfg := memoryConfig()
	manager := NewDatabaseManager(&cfg.ConnectionConfig)
	require.NoError(t, manager.Connect(context.Background()))
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager
}

func tableExists(t *testing.T, db bun.IDB, name string) bool {
	t.Helper()
	var n int
	err := db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).
		Scan(context.Background(), &n)
	require.NoError(t, err)
	return n == 1
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.yaml")
	content := `
connection_config:
  type: postgres
  host: db.internal
  port: 5432
  dbname: staff
  connect_timeout: 3s
data_migrate_config:
  enable_migrate_on_startup: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.ConnectionConfig.Type)
	assert.Equal(t, "db.internal", cfg.ConnectionConfig.Host)
	assert.Equal(t, 5432, cfg.ConnectionConfig.Port)
	assert.Equal(t, 3*time.Second, cfg.ConnectionConfig.ConnectTimeout)
	assert.False(t, cfg.DataMigrateConfig.EnableMigrateOnStartup)
	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.ConnectionConfig.MaxOpenConns)
	assert.True(t, cfg.DataMigrateConfig.EnableForeignKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "type is required")

	cfg.ConnectionConfig.Type = "oracle"
	cfg.ConnectionConfig.DBName = "x"
	assert.Error(t, cfg.Validate())

	cfg.ConnectionConfig.Type = "sqlite"
	assert.NoError(t, cfg.Validate())

	cfg.ConnectionConfig.DBName = ""
	assert.Error(t, cfg.Validate(), "dbname or dsn is required")

	cfg.ConnectionConfig.DSN = "file::memory:"
	assert.NoError(t, cfg.Validate())

	cfg.ConnectionConfig.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestFactoryOverridesFromEnv(t *testing.T) {
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_DSN", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	t.Setenv("DB_MAX_OPEN_CONNS", "1")
	t.Setenv("DB_ENABLE_QUERY_LOG", "false")
	t.Setenv("DB_SLOW_QUERY_TIME", "2s")
	t.Setenv("DB_RECONNECT_INTERVAL", "3")

	cfg := DefaultConfig()
	cfg.ConnectionConfig.HealthCheckInterval = 0
	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.ConnectionConfig.Type)
	assert.Equal(t, 1, cfg.ConnectionConfig.MaxOpenConns)
	assert.Equal(t, 2*time.Second, cfg.ConnectionConfig.SlowQueryTime)
	assert.Equal(t, 3*time.Second, cfg.ConnectionConfig.ReconnectInterval)

	require.NoError(t, factory.InitializeDatabase(context.Background(), false))
	defer factory.Close()
	assert.Same(t, manager.GetDB(), factory.GetDB())
	assert.True(t, factory.GetHealthStatus(context.Background()).Healthy)
}

func TestFactoryRejectsInvalidConfig(t *testing.T) {
	_, err := NewDatabaseFactory().CreateFromConfig(nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "oracle"
	cfg.ConnectionConfig.DBName = "x"
	_, err = NewDatabaseFactory().CreateFromConfig(cfg)
	assert.Error(t, err)

	f := NewDatabaseFactory()
	assert.Error(t, f.InitializeDatabase(context.Background(), false))
	assert.False(t, f.GetHealthStatus(context.Background()).Healthy)
	assert.Nil(t, f.GetDB())
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "app.db", sqliteDSN(&ConnectionConfig{DBName: "app"}))
	assert.Equal(t, "file::memory:?cache=shared", sqliteDSN(&ConnectionConfig{DBName: ":memory:"}))
	assert.Equal(t, "file:x.db", sqliteDSN(&ConnectionConfig{DBName: "app", DSN: "file:x.db"}))
}

func TestForeignKeyApply(t *testing.T) {
	manager := connectMemory(t)
	q := manager.GetDB().NewCreateTable().Model((*testChild)(nil))
	sql := testChildFK.Apply(q).String()
	assert.Contains(t, sql, `FOREIGN KEY ("parent_id") REFERENCES "test_parents" ("id") ON DELETE CASCADE`)
	assert.Equal(t, "fk_test_children_parent_id", testChildFK.Name())
}

func TestForeignKeyValidate(t *testing.T) {
	assert.NoError(t, testChildFK.Validate())

	bad := ForeignKeyConstraint{Table: "t", OnUpdate: "explode"}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column name cannot be empty")
	assert.Contains(t, err.Error(), "invalid referential action: explode")

	assert.Error(t, ValidateConstraints([]ForeignKeyConstraint{testChildFK, bad}))
}

func TestModelRegistryOrdersByPriority(t *testing.T) {
	registry := NewModelRegistry()
	registry.Register(NewModelAdapter((*testChild)(nil), 20, testChildFK))
	registry.Register(NewModelAdapter((*testParent)(nil), 10))

	models := registry.Models()
	require.Len(t, models, 2)
	assert.Equal(t, 10, models[0].Priority())
	assert.Equal(t, "testChild", getModelName(models[1].Instance()))
	assert.Len(t, models[1].ForeignKeys(), 1)
}

func TestTableManagerCreateAndDrop(t *testing.T) {
	ctx := context.Background()
	db := connectMemory(t).GetDB()

	registry := NewModelRegistry()
	registry.Register(NewModelAdapter((*testChild)(nil), 20, testChildFK))
	registry.Register(NewModelAdapter((*testParent)(nil), 10))
	tm := NewTableManager(db, GetLogger()).WithRegistry(registry)

	require.NoError(t, tm.CreateAll(ctx))
	require.NoError(t, tm.CreateAll(ctx), "creating twice is a no-op")
	assert.True(t, tableExists(t, db, "test_parents"))
	assert.True(t, tableExists(t, db, "test_children"))

	require.NoError(t, tm.DropAll(ctx))
	require.NoError(t, tm.DropAll(ctx), "dropping twice is a no-op")
	assert.False(t, tableExists(t, db, "test_parents"))
	assert.False(t, tableExists(t, db, "test_children"))
}

func TestCreateTableRejectsInvalidForeignKey(t *testing.T) {
	db := connectMemory(t).GetDB()
	err := CreateTable(context.Background(), db, (*testChild)(nil), ForeignKeyConstraint{Table: "test_children"})
	require.Error(t, err)
	assert.False(t, tableExists(t, db, "test_children"))
}

func TestServerDSNs(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Host = "db.local"
	cfg.Port = 3306
	cfg.Username = "reviewer"
	cfg.Password = "s3cret"
	cfg.DBName = "reviews"

	parsed, err := mysql.ParseDSN(mysqlDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "reviewer", parsed.User)
	assert.Equal(t, "s3cret", parsed.Passwd)
	assert.Equal(t, "db.local:3306", parsed.Addr)
	assert.Equal(t, "reviews", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, cfg.ConnectTimeout, parsed.Timeout)
	assert.Contains(t, mysqlDSN(cfg), "charset=utf8mb4")

	cfg.Port = 5432
	u, err := url.Parse(postgresDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.local:5432", u.Host)
	assert.Equal(t, "/reviews", u.Path)
	assert.Equal(t, "reviewer", u.User.Username())
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "10", u.Query().Get("connect_timeout"))

	cfg.SSLMode = "require"
	u, err = url.Parse(postgresDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "require", u.Query().Get("sslmode"))

	cfg.DSN = "custom"
	assert.Equal(t, "custom", mysqlDSN(cfg))
	assert.Equal(t, "custom", postgresDSN(cfg))
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	manager := connectMemory(t)

	require.NoError(t, manager.Connect(ctx), "connect is idempotent")
	require.NoError(t, manager.Ping(ctx))

	status := manager.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, manager.GetStats().MaxOpenConns)

	require.NoError(t, manager.Disconnect())
	assert.Nil(t, manager.GetDB())
	assert.Error(t, manager.Ping(ctx))
	assert.False(t, manager.HealthCheck(ctx).Healthy)
	assert.Error(t, manager.EnsureTables(ctx))
}

func TestManagerRejectsUnsupportedType(t *testing.T) {
	manager := NewDatabaseManager(&ConnectionConfig{Type: "oracle", DBName: "x"})
	assert.Error(t, manager.Connect(context.Background()))
}

func monitoredManager(t *testing.T) *defaultDatabaseManager {
	t.Helper()
	cfg := memoryConfig()
	cfg.ConnectionConfig.HealthCheckInterval = 10 * time.Millisecond
	cfg.ConnectionConfig.EnableReconnect = true
	cfg.ConnectionConfig.ReconnectInterval = time.Millisecond
	cfg.ConnectionConfig.MaxReconnectTries = 3
	manager := NewDatabaseManager(&cfg.ConnectionConfig).(*defaultDatabaseManager)
	require.NoError(t, manager.Connect(context.Background()))
	t.Cleanup(func() { _ = manager.Disconnect() })
	return manager
}

func (dm *defaultDatabaseManager) runningMonitor() chan struct{} {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.monitorDone
}

func waitClosed(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("health monitor still running")
	}
}

func TestHealthMonitorRecordsChecks(t *testing.T) {
	manager := monitoredManager(t)

	assert.Eventually(t, func() bool {
		manager.mu.RLock()
		defer manager.mu.RUnlock()
		return !manager.lastHealthCheck.IsZero() && manager.healthStatus.Healthy
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHealthMonitorStopsOnDisconnect(t *testing.T) {
	ctx := context.Background()
	manager := monitoredManager(t)

	done := manager.runningMonitor()
	require.NotNil(t, done)
	require.NoError(t, manager.Disconnect())
	waitClosed(t, done)
	assert.Nil(t, manager.runningMonitor())

	require.NoError(t, manager.Connect(ctx))
	again := manager.runningMonitor()
	require.NotNil(t, again)
	assert.NotEqual(t, done, again)

	require.NoError(t, manager.Disconnect())
	waitClosed(t, again)
}

func TestHealthMonitorStopsWhileCheckIsBlocked(t *testing.T) {
	manager := monitoredManager(t)
	done := manager.runningMonitor()

	// Hold the lock across several ticks so the monitor queues on it.
	manager.mu.Lock()
	time.Sleep(30 * time.Millisecond)
	manager.stopHealthCheck()
	_ = manager.closeLocked()
	manager.mu.Unlock()

	waitClosed(t, done)
}

func TestHealthMonitorReconnects(t *testing.T) {
	ctx := context.Background()
	manager := monitoredManager(t)
	done := manager.runningMonitor()

	broken := manager.GetSQLDB()
	require.NoError(t, broken.Close())

	assert.Eventually(t, func() bool {
		sqlDB := manager.GetSQLDB()
		return sqlDB != nil && sqlDB != broken && manager.Ping(ctx) == nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, done, manager.runningMonitor(), "reconnect keeps the same monitor")
}

func TestReconnectReplacesConnection(t *testing.T) {
	ctx := context.Background()
	manager := connectMemory(t)
	before := manager.GetSQLDB()

	require.NoError(t, manager.Reconnect(ctx))
	assert.NotSame(t, before, manager.GetSQLDB())
	assert.NoError(t, manager.Ping(ctx))
}

func TestInitDBGlobals(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()

	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)
	assert.Same(t, db, GetDB())
	assert.Same(t, cfg, GetConfig())
	assert.NotNil(t, GetDatabaseFactory())
	assert.NotNil(t, GetDatabaseManager().GetSQLDB())
	assert.True(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)
	assert.NoError(t, EnsureTables(ctx))
	assert.NoError(t, DropTables(ctx))

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDatabaseManager())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(ctx).Healthy)
	assert.Error(t, EnsureTables(ctx))
	assert.NoError(t, CloseDB())
}

func TestQueryHook(t *testing.T) {
	ctx := context.Background()
	db := connectMemory(t).GetDB()

	var buf bytes.Buffer
	db.AddQueryHook(NewQueryHook("REVIEWKIT_TEST_SQL_LOG", &buf))

	t.Setenv("REVIEWKIT_TEST_SQL_LOG", "0")
	require.NoError(t, db.NewSelect().ColumnExpr("1").Scan(ctx, new(int)))
	assert.Empty(t, buf.String())

	t.Setenv("REVIEWKIT_TEST_SQL_LOG", "2")
	require.NoError(t, db.NewSelect().ColumnExpr("1").Scan(ctx, new(int)))
	assert.Contains(t, buf.String(), "SELECT 1")
	buf.Reset()

	t.Setenv("REVIEWKIT_TEST_SQL_LOG", "1")
	require.NoError(t, db.NewSelect().ColumnExpr("2").Scan(ctx, new(int)))
	assert.Empty(t, buf.String(), "successful queries are only printed in verbose mode")
	_, err := db.NewSelect().Model((*testParent)(nil)).Count(ctx)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "test_parents")
	buf.Reset()

	EnableBunSqlSilent(true)
	defer EnableBunSqlSilent(false)
	_, _ = db.NewSelect().Model((*testParent)(nil)).Count(ctx)
	assert.Empty(t, buf.String())
}
