// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"loom/grammar"
	"loom/internal/errors"
	"loom/internal/fusion"
	"loom/internal/ir"
)

func main() {
	tileSizesFlag := flag.String("tile-sizes", "", "comma-separated tile sizes per loop dimension (default: 1 per dimension)")
	parallel := flag.Bool("parallel", false, "tile into parallel loops instead of sequential ones")
	noFuse := flag.Bool("no-fuse", false, "parse and print without running the tiling/fusion pass")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: loom-cli [flags] <file.loom>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	startTime := time.Now()
	path := flag.Arg(0)

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	program, err := grammar.ParseSource(path, string(source))
	if err != nil {
		grammar.ReportParseError(string(source), err)
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	errorReporter := errors.NewErrorReporter(path, string(source))

	lowered, buildErrors := ir.BuildProgram(program)
	for _, cerr := range buildErrors {
		fmt.Print(errorReporter.FormatError(cerr))
	}
	hasErrors := len(buildErrors) > 0

	if !hasErrors && !*noFuse {
		tileSizes, err := parseTileSizes(*tileSizesFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -tile-sizes: %v\n", err)
			os.Exit(1)
		}

		pass, err := fusion.NewPass(fusion.Options{
			UseParallelLoops: *parallel,
			TileSizes:        tileSizes,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid pass configuration: %v\n", err)
			os.Exit(1)
		}

		for _, passErr := range pass.RunProgram(lowered) {
			fmt.Print(errorReporter.FormatError(passErr))
			hasErrors = true
		}
	}

	duration := time.Since(startTime)

	if !hasErrors {
		fmt.Println(ir.Print(lowered))
		color.Green("Successfully processed %s in %s", path, formatDuration(duration))
	} else {
		color.Red("Compilation failed after %s", formatDuration(duration))
		os.Exit(1)
	}
}

func parseTileSizes(value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	sizes := make([]int, 0, len(parts))
	for _, part := range parts {
		size, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", part)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
