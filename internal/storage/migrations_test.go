package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationRunner_GetMigrationFilesSortedByVersion(t *testing.T) {
	r := NewMigrationRunner(nil)

	files, err := r.getMigrationFiles()
	require.NoError(t, err)
	require.Len(t, files, 3)

	for i := 1; i < len(files); i++ {
		assert.Less(t, files[i-1].version, files[i].version)
	}
	assert.Equal(t, "000001", files[0].version)
	assert.Contains(t, files[0].name, "create_catalogued_tables")
}
