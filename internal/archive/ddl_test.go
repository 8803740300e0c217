package archive

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dbarchive/internal/datamodel"
	"github.com/roach88/dbarchive/internal/dbdriver"
)

func TestGenerateDDL_Golden(t *testing.T) {
	dialect, ok := dbdriver.Lookup("sqlite3")
	require.True(t, ok)

	ddl := GenerateDDL(dialect, datamodel.Registry(), CurrentVersion)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "datamodel_sqlite3", []byte(strings.Join(ddl, "\n")+"\n"))
}

func TestGenerateDDL_Postgres(t *testing.T) {
	dialect, ok := dbdriver.Lookup("postgresql")
	require.True(t, ok)

	ddl := strings.Join(GenerateDDL(dialect, datamodel.Registry(), CurrentVersion), "\n")

	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS Object(_oid BIGSERIAL PRIMARY KEY, _timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)")
	assert.Contains(t, ddl, "m_time_value TIMESTAMP, m_time_value_ms BIGINT")
	assert.Contains(t, ddl, "m_depth_used BOOLEAN")
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS OriginQuality(_oid BIGSERIAL PRIMARY KEY")
}

func TestGenerateDDL_CompositeTableOnce(t *testing.T) {
	dialect, _ := dbdriver.Lookup("sqlite3")
	count := 0
	for _, stmt := range GenerateDDL(dialect, testRegistry(), CurrentVersion) {
		if strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS Attachment(") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCreateTables_Idempotent(t *testing.T) {
	a, _ := createTestArchive(t, testRegistry())
	ctx := context.Background()

	require.NoError(t, a.CreateTables(ctx))
	assert.Equal(t, CurrentVersion, a.SchemaVersion())
	assert.Equal(t, int64(1), rowCount(t, a, "Meta"))
}
