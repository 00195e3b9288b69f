package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyhwong/tao-classifier/tensor"
	"github.com/wyhwong/tao-classifier/vision/preprocessing"
)

func TestTensorDatasetSamples(t *testing.T) {
	root := writeTestImages(t, map[string]int{"cat": 2, "dog": 1})
	folder, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)

	ds := NewTensorDataset(folder, preprocessing.NewImageProcessor(4), tensor.CPU)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 3*4*4, ds.InputSize())

	data, label, err := ds.Get(2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 4}, data.Shape)
	assert.Equal(t, tensor.Float32, data.DType)
	assert.Equal(t, []int{1}, label.Shape)
	assert.Equal(t, tensor.Int32, label.DType)

	labels, err := label.GetInt32Data()
	require.NoError(t, err)
	assert.Equal(t, int32(1), labels[0]) // dog
}

func TestTensorDatasetOutOfRange(t *testing.T) {
	root := writeTestImages(t, map[string]int{"cat": 1})
	folder, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)

	ds := NewTensorDataset(folder, preprocessing.NewImageProcessor(4), tensor.CPU)
	_, _, err = ds.Get(1)
	assert.Error(t, err)
}

func TestTensorDatasetClassToIndexPassthrough(t *testing.T) {
	root := writeTestImages(t, map[string]int{"cat": 1, "dog": 1})
	folder, err := NewImageFolderDataset(root, nil)
	require.NoError(t, err)

	ds := NewTensorDataset(folder, preprocessing.NewImageProcessor(4), tensor.CPU)
	assert.Equal(t, map[string]int{"cat": 0, "dog": 1}, ds.ClassToIndex())
}
