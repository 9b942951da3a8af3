// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sourcewatch/simguard/pkg/config"
)

var (
	configPath   string
	language     string
	threshold    float64
	outputFormat string

	rootCmd = &cobra.Command{
		Use:   "simguardctl",
		Short: "Inspect and exercise the plagiarism engine from the command line",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	fingerprintCmd = &cobra.Command{
		Use:   "fingerprint [file]",
		Short: "Print the token and AST fingerprints for a single file",
		Args:  cobra.ExactArgs(1),
		RunE:  runFingerprint,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze [file1] [file2]",
		Short: "Compare two files and print their similarity and matched regions",
		Args:  cobra.ExactArgs(2),
		RunE:  runAnalyze,
	}

	runTaskCmd = &cobra.Command{
		Use:   "run-task [task.json]",
		Short: "Run an all-pairs comparison task against an in-process store",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunTask,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "json", "Output format (results are always printed as JSON; the value is not read)")

	fingerprintCmd.Flags().StringVarP(&language, "language", "l", "", "Language tag (required, e.g. go, python, javascript)")
	if err := fingerprintCmd.MarkFlagRequired("language"); err != nil {
		log.Fatalf("simguardctl: wiring fingerprint command: %v", err)
	}
	rootCmd.AddCommand(fingerprintCmd)

	analyzeCmd.Flags().StringVarP(&language, "language", "l", "", "Language tag (required, e.g. go, python, javascript)")
	analyzeCmd.Flags().Float64VarP(&threshold, "threshold", "t", 0, "Candidate threshold override (0 uses the config default)")
	if err := analyzeCmd.MarkFlagRequired("language"); err != nil {
		log.Fatalf("simguardctl: wiring analyze command: %v", err)
	}
	rootCmd.AddCommand(analyzeCmd)

	rootCmd.AddCommand(runTaskCmd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "simguard.yaml"
	}
	return filepath.Join(home, ".simguard", "simguard.yaml")
}
