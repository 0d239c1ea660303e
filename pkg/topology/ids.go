package topology

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// IDGenerator names junctions as they are created.
type IDGenerator interface {
	// JunctionID returns an id for a junction at pos within the given network scope.
	JunctionID(scope string, pos orb.Point, tol float64) string
}

// junctionNamespace seeds deterministic junction ids.
var junctionNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("cluso-district/junction"))

// DeterministicIDs derives a name-based UUID from the network scope and the
// tolerance-grid-rounded position, so unchanged geometry gets stable ids.
type DeterministicIDs struct{}

// JunctionID implements IDGenerator.
func (DeterministicIDs) JunctionID(scope string, pos orb.Point, tol float64) string {
	qx, qy := quantize(pos, tol)
	return uuid.NewSHA1(junctionNamespace, []byte(fmt.Sprintf("%s/%d/%d", scope, qx, qy))).String()
}

// RandomIDs issues a fresh random UUID for every junction.
type RandomIDs struct{}

// JunctionID implements IDGenerator.
func (RandomIDs) JunctionID(string, orb.Point, float64) string {
	return uuid.New().String()
}

// SequentialIDs names junctions Prefix0, Prefix1, ... in creation order.
// Not safe for concurrent use.
type SequentialIDs struct {
	Prefix string
	next   int
}

// JunctionID implements IDGenerator.
func (s *SequentialIDs) JunctionID(string, orb.Point, float64) string {
	id := fmt.Sprintf("%s%d", s.Prefix, s.next)
	s.next++
	return id
}

func quantize(p orb.Point, tol float64) (int64, int64) {
	return int64(math.Floor(p[0]/tol + 0.5)), int64(math.Floor(p[1]/tol + 0.5))
}

// idSet hands out unique ids within one resolution, suffixing repeats.
type idSet struct {
	gen  IDGenerator
	used map[string]int
}

func newIDSet(gen IDGenerator) *idSet {
	if gen == nil {
		gen = DeterministicIDs{}
	}
	return &idSet{gen: gen, used: make(map[string]int)}
}

func (s *idSet) next(scope string, pos orb.Point, tol float64) string {
	id := s.gen.JunctionID(scope, pos, tol)
	n := s.used[id]
	s.used[id] = n + 1
	if n == 0 {
		return id
	}
	return fmt.Sprintf("%s-%d", id, n)
}
