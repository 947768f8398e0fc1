package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"codeberg.org/ptrkv/fictionflow/internal/cli"
	"codeberg.org/ptrkv/fictionflow/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		runner := processor.NewRunner(flags)
		runner.ApplyConfig(cmd.Flags().Changed)
		return runner.Run(context.Background())
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
