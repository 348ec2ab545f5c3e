package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supply-forecast/internal/forecast"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE TABLE a (x Int32);

-- second
CREATE TABLE b (y String)
ENGINE = Memory;
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int32)", stmts[0])
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE TABLE b"))
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b';`))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/forecasts")
	require.NoError(t, err)
	assert.Equal(t, "forecasts", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsCoverLedgerColumns(t *testing.T) {
	for _, dir := range []struct {
		fsys fs.FS
		name string
		file string
	}{
		{PostgresFS, "postgres", "002_ledgers.sql"},
		{ClickhouseFS, "clickhouse", "001_ledgers.sql"},
	} {
		files, err := sqlFiles(dir.fsys, dir.name)
		require.NoError(t, err)
		require.NotEmpty(t, files)

		data, err := fs.ReadFile(dir.fsys, dir.name+"/"+dir.file)
		require.NoError(t, err)
		for _, c := range forecast.Columns {
			assert.Contains(t, string(data), "    "+c.Name+" ", "%s/%s missing %s", dir.name, dir.file, c.Name)
		}
	}
}
