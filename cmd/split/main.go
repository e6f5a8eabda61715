// Command split runs the binary-search splitting decomposition (spec.md
// §4.5.1) over a trajectory set, recording the cut positions and per-segment
// preferences each trajectory decomposes into.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Lesstat/ppts/pkg/bidijkstra"
	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/expconfig"
	"github.com/Lesstat/ppts/pkg/jsonio"
	"github.com/Lesstat/ppts/pkg/lpclient"
	"github.com/Lesstat/ppts/pkg/preference"
	"github.com/Lesstat/ppts/pkg/trajectory"
)

func main() {
	graphFile := flag.String("graph", "", "graph file in minimal FMI syntax")
	trajectoryFile := flag.String("trajectories", "", "JSON file containing trajectories")
	outFile := flag.String("out", "split_results.json", "file to write results to")
	threads := flag.Int("threads", 8, "number of worker threads")
	dim := flag.Int("dim", 2, "cost vector dimension D")
	flag.Parse()

	if *graphFile == "" || *trajectoryFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: split --graph <g.fmi> --trajectories <t.json> [--out out.json] [--threads N]")
		os.Exit(1)
	}

	cfg, err := expconfig.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.SetOutput(&lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxAge:     cfg.LogMaxAge,
		MaxBackups: cfg.LogMaxBackup,
	})

	log.Println("reading graph file")
	parsed, err := chgraph.ParseFMI(*graphFile, *dim)
	if err != nil {
		log.Fatalf("failed to read graph: %v", err)
	}

	log.Println("reading trajectories")
	trajectories, err := jsonio.ReadTrajectoriesFile(*trajectoryFile)
	if err != nil {
		log.Fatalf("failed to read trajectories: %v", err)
	}

	results := make([]jsonio.SplittingStatistics, len(trajectories))
	paths := make([]*chgraph.Path, len(trajectories))
	for i, t := range trajectories {
		removed, err := trajectory.FilterOutSelfLoops(t, parsed.Graph, parsed.EdgeLookup)
		if err != nil {
			log.Fatalf("trajectory %d: %v", i, err)
		}
		p, err := trajectory.ToPath(t, parsed.Graph, parsed.EdgeLookup)
		if err != nil {
			log.Fatalf("trajectory %d: %v", i, err)
		}
		paths[i] = p
		results[i] = jsonio.SplittingStatistics{
			TripID:                 tripIDAsInt(t),
			VehicleID:              t.VehicleID,
			TrajectoryLength:       len(p.Nodes),
			RemovedSelfLoopIndices: removed,
		}
	}

	log.Println("running splitting decomposition")
	runWorkerPool(*threads, len(paths), func(workerIdx int, indices []int) {
		finder := bidijkstra.NewQuery(parsed.Graph.NumNodes())
		client, err := lpclient.Start(cfg.LPSolverPath, *dim)
		if err != nil {
			log.Fatalf("worker %d: failed to start lpsolver: %v", workerIdx, err)
		}
		defer client.Close()
		est := preference.New(parsed.Graph, finder, client)
		analyzer := trajectory.NewAnalyzer(est)

		for _, i := range indices {
			start := time.Now()
			split, err := analyzer.FindPreference(paths[i])
			if err != nil {
				log.Printf("trajectory %d: %v", i, err)
				continue
			}
			results[i].Cuts = split.Cuts
			results[i].Preferences = split.Alphas
			results[i].RuntimeMicros = time.Since(start).Microseconds()
		}
	})

	out := &jsonio.SplittingResults{
		GraphFile:      *graphFile,
		TrajectoryFile: *trajectoryFile,
		Metrics:        parsed.MetricNames,
		Results:        results,
	}
	if err := jsonio.WriteResultsFile(*outFile, out); err != nil {
		log.Fatalf("failed to write results: %v", err)
	}
	log.Printf("wrote %s", *outFile)
}

// runWorkerPool splits [0,n) into threads contiguous chunks and runs work
// once per chunk concurrently, blocking until every chunk finishes.
func runWorkerPool(threads, n int, work func(workerIdx int, indices []int)) {
	if threads < 1 {
		threads = 1
	}
	if threads > n {
		threads = n
	}
	if n == 0 {
		return
	}
	chunkSize := (n + threads - 1) / threads

	var wg sync.WaitGroup
	for w := 0; w*chunkSize < n; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		indices := make([]int, end-start)
		for i := range indices {
			indices[i] = start + i
		}
		wg.Add(1)
		go func(workerIdx int, indices []int) {
			defer wg.Done()
			work(workerIdx, indices)
		}(w, indices)
	}
	wg.Wait()
}

func tripIDAsInt(t *trajectory.Trajectory) int64 {
	var id int64
	for _, seg := range t.TripID {
		if seg.SegmentID != nil {
			id = id*10 + int64(*seg.SegmentID)
		}
	}
	return id
}
