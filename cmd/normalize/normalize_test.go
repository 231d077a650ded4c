package normalize

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/budget-sync/internal/logging"
	"fjacquet/budget-sync/internal/normalizer"
	"fjacquet/budget-sync/internal/runerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_PrintsAndWrites(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	content := "Category,Name,Budget\nHome,Rent,\"1.500.000\"\nFood,,100\nFun,Games,-5\n"
	require.NoError(t, os.WriteFile(in, []byte(content), 0600))
	out := filepath.Join(dir, "out", "canonical.csv")

	logger := logging.NewMockLogger()
	n := normalizer.New(normalizer.DefaultOptions(), logger)

	var buf bytes.Buffer
	require.NoError(t, Execute(n, in, out, ',', &buf, logger))

	assert.Contains(t, buf.String(), "2 records")
	assert.Contains(t, buf.String(), "Rent")
	assert.Contains(t, buf.String(), "1500000")
	assert.Contains(t, buf.String(), "Dropped 1 row(s)")
	assert.Contains(t, buf.String(), "zeroed 1")

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), "Category Group,Category Name,Amount")
	assert.Contains(t, string(written), "Home,Rent,1500000")
	assert.True(t, logger.HasEntry("INFO", "Wrote canonical records"))
}

func TestExecute_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("group,category,amount\nA,B,1\n"), 0600))

	var buf bytes.Buffer
	require.NoError(t, Execute(normalizer.New(normalizer.DefaultOptions(), nil), in, "", ',', &buf, logging.NewMockLogger()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExecute_EmptyInput(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("Category Group,Category Name,Amount\n,,5\n"), 0600))

	var buf bytes.Buffer
	err := Execute(normalizer.New(normalizer.DefaultOptions(), nil), in, "", ',', &buf, logging.NewMockLogger())
	assert.Equal(t, runerror.KindEmpty, runerror.KindOf(err))
}

func TestExecute_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := Execute(normalizer.New(normalizer.DefaultOptions(), nil), filepath.Join(t.TempDir(), "nope.csv"), "", ',', &buf, logging.NewMockLogger())
	assert.Error(t, err)
}
