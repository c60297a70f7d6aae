// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// fopm-reader - Fiber-optic power meter table reader
//
// A CLI tool for reading the stored measurement table of a fiber-optic
// power meter over its serial link and printing it in human-readable form.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/fopm-reader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
