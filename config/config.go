// Package config loads and validates training run configuration from YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DatasetConfig describes where the image folders live and how samples are
// prepared before they reach the model.
type DatasetConfig struct {
	TrainDir   string  `yaml:"train_dir"`
	ValDir     string  `yaml:"val_dir"`
	ImageSize  int     `yaml:"image_size"`
	BatchSize  int     `yaml:"batch_size"`
	Shuffle    bool    `yaml:"shuffle"`
	TrainRatio float64 `yaml:"train_ratio"`
}

// OptimizerConfig selects the update algorithm and its hyperparameters.
type OptimizerConfig struct {
	Name        string     `yaml:"name"`
	LR          float64    `yaml:"lr"`
	Momentum    float64    `yaml:"momentum"`
	WeightDecay float64    `yaml:"weight_decay"`
	Alpha       float64    `yaml:"alpha"`
	Betas       [2]float64 `yaml:"betas"`
}

// SchedulerConfig selects the learning rate policy. An empty name disables
// scheduling for the run.
type SchedulerConfig struct {
	Name     string  `yaml:"name"`
	StepSize int     `yaml:"step_size"`
	Gamma    float64 `yaml:"gamma"`
	LRMin    float64 `yaml:"lr_min"`
}

// OutputConfig names the artifacts a run writes.
type OutputConfig struct {
	BestCheckpoint string `yaml:"best_checkpoint"`
	LastCheckpoint string `yaml:"last_checkpoint"`
	ClassMapping   string `yaml:"class_mapping"`
	SaveMapping    bool   `yaml:"save_mapping"`
}

// TrainConfig is the full configuration for a training run.
type TrainConfig struct {
	Dataset   DatasetConfig   `yaml:"dataset"`
	Backbone  string          `yaml:"backbone"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Epochs    int             `yaml:"epochs"`
	Standard  string          `yaml:"standard"`
	Seed      int64           `yaml:"seed"`
	Output    OutputConfig    `yaml:"output"`
}

// Default returns a config with the common hyperparameter defaults filled
// in. Callers overlay the YAML file on top of it.
func Default() TrainConfig {
	return TrainConfig{
		Dataset: DatasetConfig{
			ImageSize:  64,
			BatchSize:  32,
			Shuffle:    true,
			TrainRatio: 0.8,
		},
		Backbone: "mlp",
		Optimizer: OptimizerConfig{
			Name:     "adam",
			LR:       0.001,
			Momentum: 0.9,
			Alpha:    0.99,
			Betas:    [2]float64{0.9, 0.999},
		},
		Scheduler: SchedulerConfig{
			StepSize: 30,
			Gamma:    0.1,
		},
		Epochs:   10,
		Standard: "loss",
		Seed:     42,
		Output: OutputConfig{
			BestCheckpoint: "best.json",
			LastCheckpoint: "last.json",
		},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (TrainConfig, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first structural problem with the config.
func (c TrainConfig) Validate() error {
	if c.Dataset.TrainDir == "" {
		return errors.New("dataset.train_dir is required")
	}
	if c.Dataset.ImageSize <= 0 {
		return errors.Errorf("dataset.image_size must be positive, got %d", c.Dataset.ImageSize)
	}
	if c.Dataset.BatchSize <= 0 {
		return errors.Errorf("dataset.batch_size must be positive, got %d", c.Dataset.BatchSize)
	}
	if c.Dataset.ValDir == "" && (c.Dataset.TrainRatio <= 0 || c.Dataset.TrainRatio >= 1) {
		return errors.Errorf("dataset.train_ratio must be in (0, 1) when val_dir is unset, got %g", c.Dataset.TrainRatio)
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.Optimizer.LR <= 0 {
		return errors.Errorf("optimizer.lr must be positive, got %g", c.Optimizer.LR)
	}
	return nil
}
