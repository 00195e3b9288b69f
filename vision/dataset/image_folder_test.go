package dataset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestImages lays out a folder-per-class image tree and returns its
// root.
func writeTestImages(t *testing.T, counts map[string]int) string {
	t.Helper()
	root := t.TempDir()
	for class, n := range counts {
		dir := filepath.Join(root, class)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for i := 0; i < n; i++ {
			img := image.NewRGBA(image.Rect(0, 0, 4, 4))
			img.Set(i%4, i%4, color.RGBA{R: 255, A: 255})

			f, err := os.Create(filepath.Join(dir, testFileName(i)))
			require.NoError(t, err)
			require.NoError(t, png.Encode(f, img))
			require.NoError(t, f.Close())
		}
	}
	return root
}

func testFileName(i int) string {
	return "img_" + string(rune('a'+i)) + ".png"
}

func TestImageFolderDatasetDiscovery(t *testing.T) {
	root := writeTestImages(t, map[string]int{"cat": 3, "dog": 2})

	ds, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, 2, ds.NumClasses())
	assert.Equal(t, []string{"cat", "dog"}, ds.ClassNames())
	assert.Equal(t, map[string]int{"cat": 0, "dog": 1}, ds.ClassToIndex())
	assert.Equal(t, map[string]int{"cat": 3, "dog": 2}, ds.ClassDistribution())
}

func TestImageFolderDatasetSortedClassOrder(t *testing.T) {
	// Classes index in sorted name order regardless of creation order.
	root := writeTestImages(t, map[string]int{"zebra": 1, "ant": 1, "mole": 1})

	ds, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ant": 0, "mole": 1, "zebra": 2}, ds.ClassToIndex())
}

func TestImageFolderDatasetClassToIndexIsACopy(t *testing.T) {
	root := writeTestImages(t, map[string]int{"cat": 1})

	ds, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)

	mapping := ds.ClassToIndex()
	mapping["cat"] = 99
	assert.Equal(t, map[string]int{"cat": 0}, ds.ClassToIndex())
}

func TestImageFolderDatasetEmptyRoot(t *testing.T) {
	_, err := NewImageFolderDataset(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestImageFolderDatasetGetItem(t *testing.T) {
	root := writeTestImages(t, map[string]int{"cat": 1, "dog": 1})

	ds, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)

	path, label, err := ds.GetItem(0)
	require.NoError(t, err)
	assert.Contains(t, path, "cat")
	assert.Equal(t, 0, label)

	_, _, err = ds.GetItem(5)
	assert.Error(t, err)
}

func TestImageFolderDatasetSplit(t *testing.T) {
	root := writeTestImages(t, map[string]int{"cat": 6, "dog": 4})

	ds, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)

	train, val := ds.Split(0.8, true, 42)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, val.Len())
	assert.Equal(t, ds.ClassToIndex(), train.ClassToIndex())
	assert.Equal(t, ds.ClassToIndex(), val.ClassToIndex())
}

func TestImageFolderDatasetSplitIsSeedDeterministic(t *testing.T) {
	root := writeTestImages(t, map[string]int{"cat": 5, "dog": 5})

	ds, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)

	firstPath := func() string {
		train, _ := ds.Split(0.5, true, 11)
		path, _, err := train.GetItem(0)
		require.NoError(t, err)
		return path
	}
	assert.Equal(t, firstPath(), firstPath())
}
