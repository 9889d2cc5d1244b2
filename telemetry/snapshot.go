package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/pathomove/agents"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the heritable state of a population between generations.
type Snapshot struct {
	Version int    `json:"version"`
	Seed    uint64 `json:"seed"`
	Gen     int    `json:"gen"`

	Agents []AgentState `json:"agents"`
}

// AgentState holds one agent's position and traits.
type AgentState struct {
	X        float32    `json:"x"`
	Y        float32    `json:"y"`
	Energy   float32    `json:"energy"`
	Coef     [4]float32 `json:"coef"`
	Activity float64    `json:"activity"`
}

// NewSnapshot captures pop as the population entering generation gen.
func NewSnapshot(gen int, seed uint64, pop *agents.Population) *Snapshot {
	snap := &Snapshot{
		Version: SnapshotVersion,
		Seed:    seed,
		Gen:     gen,
		Agents:  make([]AgentState, pop.Size()),
	}
	for i := range snap.Agents {
		a := pop.Agent(i)
		snap.Agents[i] = AgentState{
			X:        a.X,
			Y:        a.Y,
			Energy:   a.Energy,
			Coef:     a.Coef,
			Activity: a.Activity,
		}
	}
	return snap
}

// Apply copies the snapshot's traits and positions into pop, which must have
// the same size.
func (s *Snapshot) Apply(pop *agents.Population) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	if len(s.Agents) != pop.Size() {
		return fmt.Errorf("snapshot has %d agents, population %d", len(s.Agents), pop.Size())
	}

	xs := make([]float32, len(s.Agents))
	ys := make([]float32, len(s.Agents))
	for i, a := range s.Agents {
		xs[i], ys[i] = a.X, a.Y
		pop.Energy[i] = a.Energy
		pop.CoefNbrs[i] = a.Coef[0]
		pop.CoefFood[i] = a.Coef[1]
		pop.CoefNbrs2[i] = a.Coef[2]
		pop.CoefFood2[i] = a.Coef[3]
		pop.Activity[i] = a.Activity
	}
	return pop.SetPositions(xs, ys)
}

// SaveSnapshot writes a snapshot to dir.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_gen_%d.json", snapshot.Gen))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
