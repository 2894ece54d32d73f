// Copyright 2018 Fabian Wenzelmann
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/Namacha411/mosaicify"
	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const (
	exitError   = 1
	exitPartial = 2
)

type options struct {
	target, imagesDir, output string
	rows, cols                int

	colorSpace      string
	avoidDuplicates bool
	metric          string
	weights         string
	parts           int
	routines        int
	sequential      bool
	seed            int64
	noShuffle       bool
	recursive       bool
	size            string
	fill            bool
	quality         uint
	jpgQuality      int
	logLevel        string
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] TARGET ROWS COLS IMAGES_DIR\n\nFlags:\n", os.Args[0])
	pflag.PrintDefaults()
}

func parseFlags() (*options, error) {
	opts := &options{}
	numRoutines := runtime.NumCPU()
	if numRoutines <= 0 {
		numRoutines = 4
	}
	pflag.StringVarP(&opts.colorSpace, "color-space", "c", "lab", "Color space for comparisons (rgb, lab, gray).")
	pflag.StringVarP(&opts.output, "output", "o", "mosaic.jpg", "File the mosaic is written to.")
	pflag.BoolVarP(&opts.avoidDuplicates, "avoid-duplicates", "d", false, "Use each source image at most once.")
	pflag.StringVarP(&opts.metric, "metric", "m", mosaicify.DefaultMetricName,
		"Distance metric ("+strings.Join(mosaicify.GetMetricNames(), ", ")+").")
	pflag.StringVarP(&opts.weights, "weights", "w", "", "Comma separated channel weights, e.g. \"2,1,1\".")
	pflag.IntVarP(&opts.parts, "parts", "p", 1, "Signature blocks per direction, 1 means mean color only.")
	pflag.IntVarP(&opts.routines, "routines", "j", numRoutines, "Number of go routines.")
	pflag.BoolVar(&opts.sequential, "sequential", false, "Match cells one after another (reproducible with --seed).")
	pflag.Int64Var(&opts.seed, "seed", 0, "Seed for the cell order, 0 means random.")
	pflag.BoolVar(&opts.noShuffle, "no-shuffle", false, "Match cells in row-major order.")
	pflag.BoolVarP(&opts.recursive, "recursive", "r", false, "Also read source images from sub directories.")
	pflag.StringVar(&opts.size, "size", "", "Size of the mosaic as WxH, W or H may be empty to keep the ratio.")
	pflag.BoolVar(&opts.fill, "fill", false, "Scale and crop source images instead of stretching them.")
	pflag.UintVar(&opts.quality, "quality", 5, "Interpolation quality for resizing (0 to 5).")
	pflag.IntVar(&opts.jpgQuality, "jpg-quality", 100, "Quality of jpg output (1 to 100).")
	pflag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error).")
	pflag.Usage = usage
	pflag.Parse()

	args := pflag.Args()
	if len(args) != 4 {
		return nil, fmt.Errorf("Expected 4 arguments, got %d", len(args))
	}
	opts.target = args[0]
	if _, err := fmt.Sscan(args[1], &opts.rows); err != nil {
		return nil, fmt.Errorf("Invalid number of rows %q: %w", args[1], err)
	}
	if _, err := fmt.Sscan(args[2], &opts.cols); err != nil {
		return nil, fmt.Errorf("Invalid number of columns %q: %w", args[2], err)
	}
	opts.imagesDir = args[3]
	return opts, nil
}

func expand(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("Can't expand path %s: %w", path, err)
	}
	return expanded, nil
}

func buildConfig(opts *options) (mosaicify.Config, error) {
	cfg := mosaicify.DefaultConfig(opts.rows, opts.cols)
	space, spaceErr := mosaicify.ParseColorSpace(opts.colorSpace)
	if spaceErr != nil {
		return cfg, spaceErr
	}
	weights, weightsErr := mosaicify.ParseWeights(opts.weights)
	if weightsErr != nil {
		return cfg, weightsErr
	}
	cfg.ColorSpace = space
	cfg.AvoidDuplicates = opts.avoidDuplicates
	cfg.Metric = opts.metric
	cfg.ChannelWeights = weights
	cfg.Parts = opts.parts
	cfg.NumRoutines = opts.routines
	cfg.Sequential = opts.sequential
	cfg.Seed = opts.seed
	if opts.noShuffle {
		cfg.Order = mosaicify.OrderRowMajor
	}
	return cfg, cfg.Validate()
}

// run returns the exit code.
func run(opts *options) int {
	level, levelErr := log.ParseLevel(opts.logLevel)
	if levelErr != nil {
		fmt.Fprintln(os.Stderr, "Error:", levelErr)
		return exitError
	}
	log.SetLevel(level)
	if level >= log.DebugLevel {
		mosaicify.Debug = true
	}
	if opts.jpgQuality < 1 || opts.jpgQuality > 100 {
		fmt.Fprintln(os.Stderr, "Error: --jpg-quality must be between 1 and 100")
		return exitError
	}

	cfg, cfgErr := buildConfig(opts)
	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", cfgErr)
		return exitError
	}

	targetPath, err := expand(opts.target)
	if err != nil {
		log.Error(err)
		return exitError
	}
	imagesDir, err := expand(opts.imagesDir)
	if err != nil {
		log.Error(err)
		return exitError
	}
	outputPath, err := expand(opts.output)
	if err != nil {
		log.Error(err)
		return exitError
	}

	start := time.Now()
	target, err := imaging.Open(targetPath, imaging.AutoOrientation(true))
	if err != nil {
		log.WithError(err).Error("Can't open target image")
		return exitError
	}
	storage, err := mosaicify.GenFSDatabase(imagesDir, opts.recursive, mosaicify.AllSupported)
	if err != nil {
		log.WithError(err).Error("Can't read source images")
		return exitError
	}
	log.WithFields(log.Fields{
		"dir":    imagesDir,
		"images": storage.NumImages(),
	}).Info("Found source images")

	numSources := int(storage.NumImages())
	numCells := cfg.Rows * cfg.Cols
	progress := mosaicify.Progress{
		Sources: mosaicify.LoggerProgressFunc("Source signatures", numSources, max(numSources/10, 1)),
		Cells:   mosaicify.LoggerProgressFunc("Matched cells", numCells, max(numCells/10, 1)),
	}
	res, genErr := mosaicify.Generate(target, storage, cfg, progress)
	var assignErr *mosaicify.AssignmentError
	partial := errors.As(genErr, &assignErr)
	if genErr != nil && !partial {
		log.WithError(genErr).Error("Can't create mosaic")
		return exitError
	}

	targetBounds := target.Bounds()
	width, height, dimErr := mosaicify.OutputDimensions(targetBounds.Dx(), targetBounds.Dy(), opts.size)
	if dimErr != nil {
		log.WithError(dimErr).Error("Invalid mosaic size")
		return exitError
	}
	division, divErr := mosaicify.DivideGrid(image.Rect(0, 0, width, height), cfg.Rows, cfg.Cols)
	if divErr != nil {
		log.WithError(divErr).Error("Can't divide mosaic")
		return exitError
	}
	strategy := mosaicify.ForceResize
	if opts.fill {
		strategy = mosaicify.FillResize
	}
	resizer := mosaicify.NewNfntResizer(mosaicify.GetInterP(opts.quality))
	mosaic, composeErr := mosaicify.ComposeMosaic(storage, res.Assignment, division, resizer, strategy,
		cfg.NumRoutines, mosaicify.ImageCacheSize, nil)
	if composeErr != nil {
		log.WithError(composeErr).Error("Can't compose mosaic")
		return exitError
	}
	if saveErr := mosaicify.SaveImage(outputPath, mosaic, opts.jpgQuality); saveErr != nil {
		log.WithError(saveErr).Error("Can't save mosaic")
		return exitError
	}

	printSummary(res.Assignment, outputPath, time.Since(start))
	if partial {
		return exitPartial
	}
	return 0
}

func printSummary(assignment *mosaicify.Assignment, output string, duration time.Duration) {
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	durationStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("202"))

	state := okStyle.Render(assignment.State.String())
	if !assignment.Complete() {
		state = failStyle.Render(assignment.State.String())
	}
	fmt.Printf("Run %s: %s\n", assignment.RunID, state)
	fmt.Printf("Distinct source images: %d\n", len(assignment.Counts()))
	for _, f := range assignment.Failures {
		fmt.Println(failStyle.Render(f.Error()))
	}
	fmt.Printf("Mosaic written to %s in %s\n", output,
		durationStyle.Render(fmt.Sprintf("%.2fs", duration.Seconds())))
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		usage()
		os.Exit(exitError)
	}
	os.Exit(run(opts))
}
