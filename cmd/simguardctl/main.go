// Copyright (C) 2026 simguard contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command simguardctl is a local, single-process client for the
// plagiarism engine: fingerprint a file, compare two files, or run a
// whole task against an in-process store, all without a running
// daemon or broker.
package main

import (
	"fmt"
	"os"

	"github.com/sourcewatch/simguard/pkg/config"
)

var cfg config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
