// Package training implements the epoch-driven training loop, learning rate
// schedulers, loss functions, data loading and best-weights bookkeeping for
// classifier training.
package training

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wyhwong/tao-classifier/model"
	"github.com/wyhwong/tao-classifier/optimizer"
	"github.com/wyhwong/tao-classifier/tensor"
)

// History holds one metric sequence per phase, appended once per epoch.
type History map[Phase][]float64

// FitConfig holds configuration for one training run.
type FitConfig struct {
	Epochs       int
	Standard     Standard
	Device       tensor.Device
	Logger       *zap.Logger
	ShowProgress bool // Render a per-batch progress bar
}

// Result carries the artifacts of a completed run. The model's live weights
// equal the last epoch's trained state, which is not necessarily the best.
type Result struct {
	Model       model.Module
	BestWeights *Snapshot
	LastWeights *Snapshot
	Loss        History
	Accuracy    History
}

// Fit runs the full training loop: for each epoch it alternates a training
// and a validation phase, tracks the best weights under the configured
// standard and records per-phase loss and accuracy histories.
//
// The first validation phase unconditionally becomes the best baseline;
// later phases replace it only on strict improvement. Ties never move the
// best snapshot. The scheduler, when present, is advanced exactly once per
// training phase per epoch. All runtime failures abort the run immediately
// with no partial result.
func Fit(m model.Module, loaders map[Phase]*DataLoader, criterion Loss, opt optimizer.Optimizer, scheduler LRScheduler, cfg FitConfig) (*Result, error) {
	if cfg.Standard != ByLoss && cfg.Standard != ByAccuracy {
		return nil, errors.Wrapf(ErrInvalidStandard, "%d", cfg.Standard)
	}
	if cfg.Epochs < 1 {
		return nil, errors.Errorf("epoch count must be at least 1, got %d", cfg.Epochs)
	}
	for _, phase := range phaseOrder {
		if loaders[phase] == nil {
			return nil, errors.Errorf("missing %s data loader", phase)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start := time.Now()
	logger.Info("starting training",
		zap.Int("epochs", cfg.Epochs),
		zap.String("standard", cfg.Standard.String()),
		zap.String("device", cfg.Device.String()),
	)

	baseLR := opt.GetLR()
	lossHistory := History{Train: nil, Validation: nil}
	accHistory := History{Train: nil, Validation: nil}

	var bestWeights *Snapshot
	var bestRecord float64
	bestRecorded := false

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		logger.Info("epoch started", zap.Int("epoch", epoch), zap.Int("total", cfg.Epochs))

		for _, phase := range phaseOrder {
			if phase == Train {
				logger.Debug("training phase started", zap.Int("epoch", epoch))
				m.Train()
			} else {
				logger.Debug("validation phase started", zap.Int("epoch", epoch))
				m.Eval()
			}

			epochLoss, epochAcc, err := runPhase(m, loaders[phase], criterion, opt, phase, epoch, cfg)
			if err != nil {
				return nil, errors.Wrapf(err, "epoch %d %s phase", epoch, phase)
			}

			if scheduler != nil && phase == Train {
				lr := scheduler.LR(epoch, baseLR)
				opt.SetLR(lr)
				logger.Info("learning rate updated",
					zap.Int("epoch", epoch),
					zap.String("scheduler", scheduler.Name()),
					zap.Float64("lr", lr),
				)
			}

			logger.Info("phase complete",
				zap.Int("epoch", epoch),
				zap.String("phase", phase.String()),
				zap.Float64("loss", epochLoss),
				zap.Float64("acc", epochAcc),
			)

			if phase == Validation {
				metric := epochLoss
				if cfg.Standard == ByAccuracy {
					metric = epochAcc
				}

				if !bestRecorded {
					// The first validation phase is always the baseline,
					// regardless of its metric quality.
					bestRecord = metric
					bestRecorded = true
					bestWeights, err = TakeSnapshot(m)
					if err != nil {
						return nil, errors.Wrap(err, "baseline snapshot")
					}
				} else if cfg.Standard.improves(metric, bestRecord) {
					logger.Info("new best record",
						zap.Int("epoch", epoch),
						zap.String("standard", cfg.Standard.String()),
						zap.Float64("value", metric),
						zap.Float64("previous", bestRecord),
					)
					bestRecord = metric
					bestWeights, err = TakeSnapshot(m)
					if err != nil {
						return nil, errors.Wrap(err, "best snapshot")
					}
				}
			}

			lossHistory[phase] = append(lossHistory[phase], epochLoss)
			accHistory[phase] = append(accHistory[phase], epochAcc)
		}
	}

	lastWeights, err := TakeSnapshot(m)
	if err != nil {
		return nil, errors.Wrap(err, "final snapshot")
	}

	logger.Info("training complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("standard", cfg.Standard.String()),
		zap.Float64("best", bestRecord),
	)

	return &Result{
		Model:       m,
		BestWeights: bestWeights,
		LastWeights: lastWeights,
		Loss:        lossHistory,
		Accuracy:    accHistory,
	}, nil
}

// runPhase drives one pass over a phase's data, returning the averaged loss
// and accuracy. Gradients are computed and applied only during Train.
func runPhase(m model.Module, loader *DataLoader, criterion Loss, opt optimizer.Optimizer, phase Phase, epoch int, cfg FitConfig) (float64, float64, error) {
	var runningLoss float64
	var runningCorrects int
	var progress *ProgressBar

	if cfg.ShowProgress {
		desc := fmt.Sprintf("Epoch %d/%d (%s)", epoch, cfg.Epochs, phase)
		progress = NewProgressBar(desc, loader.Len())
	}

	loader.Reset()
	batchCount := 0
	for loader.HasNext() {
		batch, err := loader.Next()
		if err != nil {
			return 0, 0, err
		}
		if batch == nil {
			break
		}

		input, err := batch.Data.ToDevice(cfg.Device)
		if err != nil {
			return 0, 0, errors.Wrap(err, "move inputs to device")
		}
		labels, err := batch.Labels.ToDevice(cfg.Device)
		if err != nil {
			return 0, 0, errors.Wrap(err, "move labels to device")
		}

		// Datasets emit [1] labels which batch into [batch, 1]; cross
		// entropy expects [batch].
		if len(labels.Shape) == 2 && labels.Shape[1] == 1 {
			labels, err = labels.Reshape([]int{labels.Shape[0]})
			if err != nil {
				return 0, 0, errors.Wrap(err, "reshape labels")
			}
		}

		opt.ZeroGrad()

		output, err := m.Forward(input)
		if err != nil {
			return 0, 0, errors.Wrap(err, "forward pass")
		}

		loss, err := criterion.Forward(output, labels)
		if err != nil {
			return 0, 0, errors.Wrap(err, "loss computation")
		}

		preds, err := tensor.ArgMaxRows(output)
		if err != nil {
			return 0, 0, errors.Wrap(err, "prediction argmax")
		}

		if phase == Train {
			if err := loss.Backward(); err != nil {
				return 0, 0, errors.Wrap(err, "backward pass")
			}
			if err := opt.Step(); err != nil {
				return 0, 0, errors.Wrap(err, "optimizer step")
			}
		}

		lossValue, err := loss.Item()
		if err != nil {
			return 0, 0, errors.Wrap(err, "loss value")
		}

		batchSize := input.Shape[0]
		runningLoss += lossValue * float64(batchSize)

		labelData, err := labels.GetInt32Data()
		if err != nil {
			return 0, 0, errors.Wrap(err, "label data")
		}
		for i, pred := range preds {
			if pred == labelData[i] {
				runningCorrects++
			}
		}

		batchCount++
		if progress != nil {
			progress.Update(batchCount, map[string]float64{"loss": lossValue})
		}
	}

	if progress != nil {
		progress.Finish()
	}

	size := loader.DatasetSize()
	if size == 0 {
		return 0, 0, errors.New("empty dataset")
	}
	return runningLoss / float64(size), float64(runningCorrects) / float64(size), nil
}
