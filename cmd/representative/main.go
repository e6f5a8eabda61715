// Command representative computes, per trajectory, the single preference
// minimizing regret against its full recorded path (spec.md §4.4.2),
// spreading trajectories across a fixed worker pool, each worker owning its
// own search scratch state and LP solver subprocess (spec.md §5).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Lesstat/ppts/pkg/bidijkstra"
	"github.com/Lesstat/ppts/pkg/chgraph"
	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/expconfig"
	"github.com/Lesstat/ppts/pkg/jsonio"
	"github.com/Lesstat/ppts/pkg/lpclient"
	"github.com/Lesstat/ppts/pkg/preference"
	"github.com/Lesstat/ppts/pkg/trajectory"
)

func main() {
	graphFile := flag.String("graph", "", "graph file in minimal FMI syntax")
	trajectoryFile := flag.String("trajectories", "", "JSON file containing trajectories")
	outFile := flag.String("out", "representative_results.json", "file to write results to")
	threads := flag.Int("threads", 8, "number of worker threads")
	dim := flag.Int("dim", 2, "cost vector dimension D")
	randomTrials := flag.Int("random-trials", 0, "number of synthetic random-walk trajectories to add to the input set")
	flag.Parse()

	if *graphFile == "" || *trajectoryFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: representative --graph <g.fmi> --trajectories <t.json> [--out out.json] [--threads N] [--random-trials N]")
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

	if *randomTrials > 0 {
		log.Printf("generating %d random-walk trajectories", *randomTrials)
		trajectories = append(trajectories, generateRandomWalkTrajectories(parsed, *randomTrials)...)
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

	log.Println("finding representative preferences")
	runWorkerPool(*threads, len(paths), func(workerIdx int, indices []int) {
		finder := bidijkstra.NewQuery(parsed.Graph.NumNodes())
		client, err := lpclient.Start(cfg.LPSolverPath, *dim)
		if err != nil {
			log.Fatalf("worker %d: failed to start lpsolver: %v", workerIdx, err)
		}
		defer client.Close()
		est := preference.New(parsed.Graph, finder, client)

		for _, i := range indices {
			start := time.Now()
			regret, err := est.CalcRepresentativePreference(paths[i], 0, len(paths[i].Edges))
			if err != nil {
				log.Printf("trajectory %d: %v", i, err)
				continue
			}
			results[i].Preferences = []costmath.Preference{regret.Alpha}
			results[i].RuntimeMicros = time.Since(start).Microseconds()
			results[i].Representative = &jsonio.RepresentativeDetail{
				Preference:      regret.Alpha,
				Regret:          regret.Delta,
				PerIterCosts:    perIterationCostAngles(regret.Iterations, paths[i]),
				PerIterOverlaps: perIterationOverlaps(regret.Iterations, paths[i]),
			}
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

// perIterationCostAngles reports, for each cutting-plane iteration, the
// cosine similarity between that iteration's queried cost vector and the
// trajectory's actual cost vector (1.0 means the query already matched the
// real cost direction exactly).
func perIterationCostAngles(iterations []preference.IterationRecord, path *chgraph.Path) []float64 {
	out := make([]float64, len(iterations))
	for k, it := range iterations {
		out[k] = trajectory.CostAngle(it.QueryCost, path.TotalCost)
	}
	return out
}

// perIterationOverlaps reports, for each cutting-plane iteration, the edge
// overlap between that iteration's queried path (path index 0, the only
// path CalcRepresentativePreference ever passes in) and the recorded path.
func perIterationOverlaps(iterations []preference.IterationRecord, path *chgraph.Path) []float64 {
	out := make([]float64, len(iterations))
	for k, it := range iterations {
		queried := &chgraph.Path{Edges: it.Edges[0]}
		out[k] = trajectory.Overlap(queried, path)
	}
	return out
}

// generateRandomWalkTrajectories synthesizes up to n extra trajectories by
// repeated random-preference shortest-path walks between random node
// pairs, per spec.md §6.6's anticipated "random-trial count" parameter. A
// draw whose source equals its target, or for which no walk is found, is
// skipped, so fewer than n may be returned.
func generateRandomWalkTrajectories(parsed *chgraph.ParsedGraph, n int) []*trajectory.Trajectory {
	reverse := make(map[uint32]string, len(parsed.EdgeLookup))
	for ext, idx := range parsed.EdgeLookup {
		reverse[idx] = ext
	}
	extID := func(id uint32) string { return reverse[id] }

	rnd := rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	finder := bidijkstra.NewQuery(parsed.Graph.NumNodes())
	numNodes := parsed.Graph.NumNodes()

	out := make([]*trajectory.Trajectory, 0, n)
	for i := 0; i < n; i++ {
		src := uint32(rnd.Intn(numNodes))
		dst := uint32(rnd.Intn(numNodes))
		if src == dst {
			continue
		}
		t, ok := trajectory.CreateRandomWalkTrajectory(src, dst, parsed.Graph, finder, rnd, extID)
		if !ok {
			continue
		}
		out = append(out, t)
	}
	return out
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
