package topology

import (
	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/network"
)

// Junction is a deduplicated node derived from connector endpoints.
type Junction struct {
	ID         string    `json:"id"`
	Position   orb.Point `json:"position"`
	SystemID   string    `json:"system_id,omitempty"`
	BuildingID string    `json:"building_id,omitempty"`
}

// ConnectorEnds holds the junction ids at the start and end of one connector.
type ConnectorEnds struct {
	Start string
	End   string
}

// JunctionSet is the result of deduplicating a connector list.
type JunctionSet struct {
	Junctions []Junction
	// Ends is parallel to the connectors that produced the set.
	Ends []ConnectorEnds
}

// positions maps junction ids to their index in Junctions.
func (s *JunctionSet) positions() map[string]int {
	m := make(map[string]int, len(s.Junctions))
	for i, j := range s.Junctions {
		m[j.ID] = i
	}
	return m
}

// DedupOptions controls junction deduplication.
type DedupOptions struct {
	Index IndexStrategy
	IDs   IDGenerator
}

// DeduplicateJunctions merges connector endpoints into unique junctions.
// An endpoint reuses the earliest-created junction closer than tol; otherwise
// it creates a new one. scope namespaces generated ids.
func DeduplicateJunctions(scope string, connectors []network.Connector, tol float64, opts DedupOptions) (*JunctionSet, error) {
	ix := newPointIndex(opts.Index, tol)
	ids := newIDSet(opts.IDs)
	set := &JunctionSet{Ends: make([]ConnectorEnds, 0, len(connectors))}

	resolve := func(p orb.Point) string {
		if i := ix.find(p); i >= 0 {
			return set.Junctions[i].ID
		}
		ix.add(p)
		j := Junction{ID: ids.next(scope, p, tol), Position: p}
		set.Junctions = append(set.Junctions, j)
		return j.ID
	}

	for _, c := range connectors {
		if len(c.Geometry) < 2 {
			return nil, NewError("deduplicate").Connector(c.ID).
				Context("%d vertices", len(c.Geometry)).Cause(ErrGeometry).Err()
		}
		ends := ConnectorEnds{Start: resolve(c.Start()), End: resolve(c.End())}
		if ends.Start == ends.End {
			return nil, NewError("deduplicate").Connector(c.ID).
				Context("start and end collapse into junction %s", ends.Start).
				Cause(ErrToleranceMismatch).Err()
		}
		set.Ends = append(set.Ends, ends)
	}
	return set, nil
}
