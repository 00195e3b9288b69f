// Package dataset loads labeled image datasets from folder-per-class
// directory layouts.
package dataset

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageFolderDataset represents a dataset loaded from a directory structure
// where each subdirectory is a class. Classes are indexed in sorted name
// order so the mapping is deterministic across runs.
type ImageFolderDataset struct {
	imagePaths []string
	labels     []int
	classNames []string
	classToIdx map[string]int
}

// NewImageFolderDataset creates a dataset from a directory structure.
func NewImageFolderDataset(root string, extensions []string) (*ImageFolderDataset, error) {
	if len(extensions) == 0 {
		extensions = []string{".jpg", ".jpeg", ".png"}
	}

	dataset := &ImageFolderDataset{
		classToIdx: make(map[string]int),
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dataset.classNames = append(dataset.classNames, entry.Name())
	}
	sort.Strings(dataset.classNames)

	for classIdx, className := range dataset.classNames {
		dataset.classToIdx[className] = classIdx

		for _, ext := range extensions {
			pattern := filepath.Join(root, className, "*"+ext)
			files, err := filepath.Glob(pattern)
			if err != nil {
				continue
			}
			sort.Strings(files)
			for _, file := range files {
				dataset.imagePaths = append(dataset.imagePaths, file)
				dataset.labels = append(dataset.labels, classIdx)
			}
		}
	}

	if len(dataset.imagePaths) == 0 {
		return nil, fmt.Errorf("no images found in %s", root)
	}

	return dataset, nil
}

// Len returns the number of items in the dataset.
func (d *ImageFolderDataset) Len() int {
	return len(d.imagePaths)
}

// GetItem returns the image path and label at the given index.
func (d *ImageFolderDataset) GetItem(index int) (string, int, error) {
	if index < 0 || index >= len(d.imagePaths) {
		return "", 0, fmt.Errorf("index %d out of range [0, %d)", index, len(d.imagePaths))
	}
	return d.imagePaths[index], d.labels[index], nil
}

// NumClasses returns the number of classes.
func (d *ImageFolderDataset) NumClasses() int {
	return len(d.classNames)
}

// ClassNames returns the list of class names in index order.
func (d *ImageFolderDataset) ClassNames() []string {
	return d.classNames
}

// ClassToIndex returns the class-name-to-index table.
func (d *ImageFolderDataset) ClassToIndex() map[string]int {
	mapping := make(map[string]int, len(d.classToIdx))
	for name, idx := range d.classToIdx {
		mapping[name] = idx
	}
	return mapping
}

// ClassDistribution returns the number of samples per class.
func (d *ImageFolderDataset) ClassDistribution() map[string]int {
	dist := make(map[string]int)
	for _, label := range d.labels {
		dist[d.classNames[label]]++
	}
	return dist
}

// Split splits the dataset into train and validation sets.
func (d *ImageFolderDataset) Split(trainRatio float64, shuffle bool, seed int64) (*ImageFolderDataset, *ImageFolderDataset) {
	n := len(d.imagePaths)
	trainSize := int(float64(n) * trainRatio)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	return d.Subset(indices[:trainSize]), d.Subset(indices[trainSize:])
}

// Subset creates a dataset containing only the given indices.
func (d *ImageFolderDataset) Subset(indices []int) *ImageFolderDataset {
	subset := &ImageFolderDataset{
		imagePaths: make([]string, len(indices)),
		labels:     make([]int, len(indices)),
		classNames: d.classNames,
		classToIdx: d.classToIdx,
	}
	for i, idx := range indices {
		subset.imagePaths[i] = d.imagePaths[idx]
		subset.labels[i] = d.labels[idx]
	}
	return subset
}

// String returns a string representation of the dataset.
func (d *ImageFolderDataset) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ImageFolderDataset: %d samples, %d classes\n", len(d.imagePaths), len(d.classNames)))
	sb.WriteString("Class distribution:\n")

	dist := d.ClassDistribution()
	for _, className := range d.classNames {
		sb.WriteString(fmt.Sprintf("  %s: %d samples\n", className, dist[className]))
	}
	return sb.String()
}
