package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCases(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"IBD_0002.nii.gz", "IBD_0000.nii.gz", "notes.txt", "IBD_0001.nii", ".nii.gz"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "IBD_0009.nii.gz"), 0755))

	cases, err := ListCases(dir, "")
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, "IBD_0000", cases[0].ID)
	assert.Equal(t, filepath.Join(dir, "IBD_0000.nii.gz"), cases[0].Path)
	assert.Equal(t, "IBD_0002", cases[1].ID)

	plain, err := ListCases(dir, ".nii")
	require.NoError(t, err)
	require.Len(t, plain, 1)
	assert.Equal(t, "IBD_0001", plain[0].ID)
}

func TestListCasesMissingDir(t *testing.T) {
	_, err := ListCases(filepath.Join(t.TempDir(), "missing"), DefaultSuffix)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSourcePath(t *testing.T) {
	assert.Equal(t, filepath.Join("labels", "IBD_0003.nii.gz"), SourcePath("labels", "IBD_0003", ""))
}
