package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wyhwong/tao-classifier/checkpoints"
	"github.com/wyhwong/tao-classifier/config"
	"github.com/wyhwong/tao-classifier/internal/logging"
	"github.com/wyhwong/tao-classifier/model"
	"github.com/wyhwong/tao-classifier/optimizer"
	"github.com/wyhwong/tao-classifier/tensor"
	"github.com/wyhwong/tao-classifier/training"
	"github.com/wyhwong/tao-classifier/vision/dataset"
	"github.com/wyhwong/tao-classifier/vision/preprocessing"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier from an image folder dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runTrain(cfg, logging.New(verbose))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "train.yaml", "path to the training config")
	return cmd
}

func runTrain(cfg config.TrainConfig, logger *zap.Logger) error {
	defer logger.Sync()

	device := tensor.CPU

	trainFolder, err := dataset.NewImageFolderDataset(cfg.Dataset.TrainDir, nil)
	if err != nil {
		return errors.Wrap(err, "loading training dataset")
	}

	var valFolder *dataset.ImageFolderDataset
	if cfg.Dataset.ValDir != "" {
		valFolder, err = dataset.NewImageFolderDataset(cfg.Dataset.ValDir, nil)
		if err != nil {
			return errors.Wrap(err, "loading validation dataset")
		}
	} else {
		trainFolder, valFolder = trainFolder.Split(cfg.Dataset.TrainRatio, cfg.Dataset.Shuffle, cfg.Seed)
	}

	mapping, err := training.ExtractClassMapping(trainFolder, cfg.Output.ClassMapping, cfg.Output.SaveMapping)
	if err != nil {
		return err
	}
	logger.Info("class mapping resolved",
		zap.Int("numClasses", len(mapping)),
		zap.Bool("saved", cfg.Output.SaveMapping))

	processor := preprocessing.NewImageProcessor(cfg.Dataset.ImageSize)
	trainDS := dataset.NewTensorDataset(trainFolder, processor, device)
	valDS := dataset.NewTensorDataset(valFolder, processor, device)

	loaders := map[training.Phase]*training.DataLoader{
		training.Train:      training.NewDataLoader(trainDS, cfg.Dataset.BatchSize, cfg.Dataset.Shuffle, cfg.Seed, device),
		training.Validation: training.NewDataLoader(valDS, cfg.Dataset.BatchSize, false, cfg.Seed, device),
	}

	backbone, err := model.ParseBackbone(cfg.Backbone)
	if err != nil {
		return err
	}
	m, err := model.NewClassifier(backbone, trainDS.InputSize(), len(mapping), cfg.Seed, device)
	if err != nil {
		return err
	}

	algo, err := optimizer.ParseAlgorithm(cfg.Optimizer.Name)
	if err != nil {
		return err
	}
	opt, err := optimizer.New(m.Parameters(), algo, optimizer.Config{
		LR:          cfg.Optimizer.LR,
		Momentum:    cfg.Optimizer.Momentum,
		WeightDecay: cfg.Optimizer.WeightDecay,
		Alpha:       cfg.Optimizer.Alpha,
		Betas:       cfg.Optimizer.Betas,
	})
	if err != nil {
		return err
	}

	var scheduler training.LRScheduler
	if cfg.Scheduler.Name != "" {
		policy, err := training.ParsePolicy(cfg.Scheduler.Name)
		if err != nil {
			return err
		}
		scheduler, err = training.NewScheduler(policy, cfg.Epochs, cfg.Scheduler.StepSize, cfg.Scheduler.Gamma, cfg.Scheduler.LRMin)
		if err != nil {
			return err
		}
	}

	standard, err := training.ParseStandard(cfg.Standard)
	if err != nil {
		return err
	}

	logger.Info("run configured",
		zap.String("backbone", cfg.Backbone),
		zap.String("optimizer", cfg.Optimizer.Name),
		zap.String("standard", cfg.Standard),
		zap.Int("epochs", cfg.Epochs),
		zap.Int("trainSamples", trainDS.Len()),
		zap.Int("valSamples", valDS.Len()))

	result, err := training.Fit(m, loaders, training.NewCrossEntropyLoss(), opt, scheduler, training.FitConfig{
		Epochs:       cfg.Epochs,
		Standard:     standard,
		Device:       device,
		Logger:       logger,
		ShowProgress: true,
	})
	if err != nil {
		return err
	}

	state := checkpoints.TrainingState{
		Epochs:       cfg.Epochs,
		Standard:     cfg.Standard,
		LearningRate: opt.GetLR(),
	}
	if err := saveSnapshot(result.BestWeights, cfg.Output.BestCheckpoint, state, "best weights"); err != nil {
		return err
	}
	if err := saveSnapshot(result.LastWeights, cfg.Output.LastCheckpoint, state, "last weights"); err != nil {
		return err
	}

	logger.Info("training complete",
		zap.String("bestCheckpoint", cfg.Output.BestCheckpoint),
		zap.String("lastCheckpoint", cfg.Output.LastCheckpoint))
	return nil
}

func saveSnapshot(snap *training.Snapshot, path string, state checkpoints.TrainingState, description string) error {
	if snap == nil || path == "" {
		return nil
	}
	ckpt, err := checkpoints.FromSnapshot(snap, state, checkpoints.NewMetadata(description))
	if err != nil {
		return err
	}
	return ckpt.Save(path)
}
