package dataset

import (
	"github.com/wyhwong/tao-classifier/tensor"
	"github.com/wyhwong/tao-classifier/vision/preprocessing"
)

// TensorDataset adapts an ImageFolderDataset into batched-tensor samples:
// each item is a CHW Float32 image and an Int32 class index.
type TensorDataset struct {
	folder    *ImageFolderDataset
	processor *preprocessing.ImageProcessor
	device    tensor.Device
}

// NewTensorDataset wraps a folder dataset with image preprocessing.
func NewTensorDataset(folder *ImageFolderDataset, processor *preprocessing.ImageProcessor, device tensor.Device) *TensorDataset {
	return &TensorDataset{
		folder:    folder,
		processor: processor,
		device:    device,
	}
}

// Len returns the number of samples.
func (d *TensorDataset) Len() int {
	return d.folder.Len()
}

// Get decodes the image at idx into a [3, size, size] Float32 tensor and a
// [1] Int32 label tensor.
func (d *TensorDataset) Get(idx int) (*tensor.Tensor, *tensor.Tensor, error) {
	path, label, err := d.folder.GetItem(idx)
	if err != nil {
		return nil, nil, err
	}

	img, err := d.processor.PreprocessFile(path)
	if err != nil {
		return nil, nil, err
	}

	data, err := tensor.NewTensor([]int{img.Channels, img.Height, img.Width}, tensor.Float32, d.device, img.Data)
	if err != nil {
		return nil, nil, err
	}

	labelT, err := tensor.NewTensor([]int{1}, tensor.Int32, d.device, []int32{int32(label)})
	if err != nil {
		return nil, nil, err
	}

	return data, labelT, nil
}

// ClassToIndex exposes the underlying folder dataset's class mapping.
func (d *TensorDataset) ClassToIndex() map[string]int {
	return d.folder.ClassToIndex()
}

// InputSize returns the flattened feature count of one sample.
func (d *TensorDataset) InputSize() int {
	size := d.processor.TargetSize()
	return 3 * size * size
}
