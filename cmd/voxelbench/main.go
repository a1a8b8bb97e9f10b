package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxelfunc/internal/models"
	"voxelfunc/pkg/config"
	"voxelfunc/pkg/parallel"
	"voxelfunc/pkg/similarity"
	"voxelfunc/pkg/visualization"
	"voxelfunc/pkg/volume"
	"voxelfunc/pkg/voxel"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "voxelfunc.yaml", "Path to the YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	workers := flag.Int("workers", -1, "Override parallel.workers (0 uses all available cores)")
	passes := flag.Int("passes", 0, "Override bench.passes")
	slicesDir := flag.String("slices-dir", "", "Override bench.sliceOutputDir")
	serve := flag.Bool("serve", false, "Keep serving /metrics after the benchmark")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *workers >= 0 {
		cfg.Parallel.Workers = *workers
	}
	if *passes > 0 {
		cfg.Bench.Passes = *passes
	}
	if *slicesDir != "" {
		cfg.Bench.SliceOutputDir = *slicesDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg.ConfigureTracing()

	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Listen, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Warning: metrics endpoint stopped: %v", err)
			}
		}()
		fmt.Printf("Serving metrics on %s/metrics\n", cfg.Metrics.Listen)
	}

	sched := cfg.Scheduler()
	parallel.SetDefault(sched)
	attr := cfg.Attributes()

	fmt.Println("================================")
	fmt.Println("VOXEL TRAVERSAL BENCHMARK")
	fmt.Printf("Volume %v, %d workers\n", attr, sched.Workers())
	fmt.Println("================================")

	startTime := time.Now()
	phantom := models.DefaultPhantom(attr).Build()
	noisy := models.Perturb(phantom, cfg.Bench.Noise, cfg.Bench.Seed)
	fmt.Printf("Synthetic volumes built in %.2f seconds\n\n", time.Since(startTime).Seconds())

	out := volume.NewImage[float64](attr)
	scale := voxel.BinaryValue(phantom, out, voxel.BinaryFunc[float64, float64](func(i, j, k, l int, in, dst *float64) {
		*dst = 2*(*in) + 1
	}))
	stats := &similarity.Moments[float64]{}
	sum := voxel.Unary(noisy, stats)

	fmt.Printf("Pass timings over %d repetitions:\n", cfg.Bench.Passes)
	fmt.Printf("=======================================\n")
	report("transform", cfg.Bench.Passes,
		func() { voxel.ForEachVoxel(scale) },
		func() { voxel.ParallelForEachVoxel(scale, voxel.WithScheduler(sched)) },
	)
	report("reduction", cfg.Bench.Passes,
		func() { voxel.ForEachVoxel(sum) },
		func() { voxel.ParallelForEachVoxel(sum, voxel.WithScheduler(sched)) },
	)
	fmt.Printf("Accumulated mean %.6f over %d voxels\n", stats.Mean(), stats.N)

	fmt.Printf("\nSimilarity of the perturbed volume:\n")
	fmt.Printf("=======================================\n")
	for _, fg := range []bool{false, true} {
		m, err := similarity.Compare(noisy, phantom, similarity.Options{Bins: 256, Foreground: fg, Scheduler: sched})
		if err != nil {
			log.Fatalf("Comparison failed: %v", err)
		}
		label := "whole volume"
		if fg {
			label = "foreground"
		}
		fmt.Printf("%-13s Mutual Information (MI): %.3f\n", label, m.MI)
		fmt.Printf("%-13s Entropy Difference: %.3f\n", label, m.EntropyDiff)
		fmt.Printf("%-13s Root Mean Square Error (RMSE): %.6f\n", label, m.RMSE)
		fmt.Printf("%-13s Structural Similarity Index (SSIM): %.3f\n", label, m.SSIM)
	}

	// Extract and save slices if requested
	if cfg.Bench.SliceOutputDir != "" {
		fmt.Println("\nExtracting phantom slices along all axes...")
		viewer := visualization.NewViewer(phantom, sched)
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(cfg.Bench.SliceOutputDir, axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)
			if err := viewer.SaveSliceSequence(axis, axisDir, 0); err != nil {
				log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
			}
		}
		fmt.Println("Slice extraction completed!")
	}

	if cfg.Metrics.Enabled && *serve {
		fmt.Println("\nBenchmark done, serving metrics until interrupted")
		select {}
	}
}

// report times the sequential and the parallel form of a traversal
func report(name string, passes int, sequentialFn, parallelFn func()) {
	seq := timeIt(passes, sequentialFn)
	par := timeIt(passes, parallelFn)
	speedup := seq.Seconds() / par.Seconds()
	fmt.Printf("%-10s sequential %10v  parallel %10v  speedup %.2fx\n", name, seq, par, speedup)
}

// timeIt returns the mean duration of fn over passes runs
func timeIt(passes int, fn func()) time.Duration {
	start := time.Now()
	for i := 0; i < passes; i++ {
		fn()
	}
	return time.Since(start) / time.Duration(passes)
}
