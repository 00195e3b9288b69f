package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wyhwong/tao-classifier/checkpoints"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <checkpoint>",
		Short: "Print the contents of a saved checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ckpt, err := checkpoints.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("run %s (%s %s, created %s)\n",
				ckpt.Metadata.RunID, ckpt.Metadata.Framework, ckpt.Metadata.Version,
				ckpt.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("trained for %d epochs, standard=%s, lr=%g\n",
				ckpt.TrainingState.Epochs, ckpt.TrainingState.Standard, ckpt.TrainingState.LearningRate)
			fmt.Printf("%d weight tensors:\n", len(ckpt.Weights))
			for _, w := range ckpt.Weights {
				fmt.Printf("  %-24s %v (%d values)\n", w.Name, w.Shape, len(w.Data))
			}
			return nil
		},
	}
}
