// Package jsonio implements the external JSON formats of spec.md
// §6.3/§6.4: decoding recorded Trajectory arrays and encoding per-trajectory
// analysis Results.
package jsonio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Lesstat/ppts/pkg/costmath"
	"github.com/Lesstat/ppts/pkg/experror"
	"github.com/Lesstat/ppts/pkg/trajectory"
)

// rawTripSegment mirrors one `[optional_u32, u32]` pair in a trip id.
type rawTripSegment struct {
	SegmentID *uint32
	Index     uint32
}

func (s rawTripSegment) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{s.SegmentID, s.Index})
}

func (s *rawTripSegment) UnmarshalJSON(b []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if string(pair[0]) != "null" {
		var id uint32
		if err := json.Unmarshal(pair[0], &id); err != nil {
			return err
		}
		s.SegmentID = &id
	}
	return json.Unmarshal(pair[1], &s.Index)
}

// rawTrajectory mirrors spec.md §6.3's JSON object shape.
type rawTrajectory struct {
	TripID    []rawTripSegment `json:"trip_id"`
	VehicleID int64            `json:"vehicle_id"`
	Path      []string         `json:"path"`
}

// ReadTrajectories decodes a JSON array of trajectories from r.
func ReadTrajectories(r io.Reader) ([]*trajectory.Trajectory, error) {
	var raw []rawTrajectory
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, experror.NewInputMalformed("trajectory json", err)
	}

	out := make([]*trajectory.Trajectory, len(raw))
	for i, rt := range raw {
		segs := make([]trajectory.TripSegment, len(rt.TripID))
		for j, s := range rt.TripID {
			segs[j] = trajectory.TripSegment{SegmentID: s.SegmentID, Index: s.Index}
		}
		out[i] = &trajectory.Trajectory{
			TripID:    segs,
			VehicleID: rt.VehicleID,
			Path:      rt.Path,
		}
	}
	return out, nil
}

// ReadTrajectoriesFile opens path and decodes its trajectory array.
func ReadTrajectoriesFile(path string) ([]*trajectory.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, experror.NewInputMalformed("trajectory file", err)
	}
	defer f.Close()
	return ReadTrajectories(f)
}

// NonOptSubPathsResult records a trajectory's non-optimal subpaths and how
// long finding them took.
type NonOptSubPathsResult struct {
	NonOptSubpaths [][2]int `json:"non_opt_subpaths"`
	RuntimeMicros  int64    `json:"runtime"`
}

// RepresentativeDetail records a representative-preference search outcome,
// plus the per-iteration cost angles and overlaps the loop produced.
type RepresentativeDetail struct {
	Preference      costmath.Preference `json:"preference"`
	Regret          float64             `json:"regret"`
	PerIterCosts    []float64           `json:"per_iteration_costs,omitempty"`
	PerIterOverlaps []float64           `json:"per_iteration_overlaps,omitempty"`
}

// SplittingStatistics is one trajectory's analysis record within a Results
// document.
type SplittingStatistics struct {
	TripID                 int64                 `json:"trip_id"`
	VehicleID              int64                 `json:"vehicle_id"`
	TrajectoryLength       int                    `json:"trajectory_length"`
	RemovedSelfLoopIndices []int                  `json:"removed_self_loop_indices"`
	Preferences            []costmath.Preference  `json:"preferences"`
	Cuts                   []int                  `json:"cuts"`
	NonOptSubpaths         *NonOptSubPathsResult   `json:"non_opt_subpaths,omitempty"`
	Representative         *RepresentativeDetail   `json:"representative,omitempty"`
	RuntimeMicros          int64                  `json:"run_time"`
}

// SplittingResults is the top-level Results JSON document of spec.md §6.4.
type SplittingResults struct {
	GraphFile      string                `json:"graph_file"`
	TrajectoryFile string                `json:"trajectory_file"`
	Metrics        []string              `json:"metrics"`
	Results        []SplittingStatistics `json:"results"`
}

// WriteResults encodes results as indented JSON to w.
func WriteResults(w io.Writer, results *SplittingResults) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("jsonio: encode results: %w", err)
	}
	return nil
}

// WriteResultsFile creates (or truncates) path and writes results to it.
func WriteResultsFile(path string, results *SplittingResults) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("jsonio: create %s: %w", path, err)
	}
	defer f.Close()
	return WriteResults(f, results)
}
