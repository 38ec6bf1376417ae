package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"gdfplan/internal/lops"
	"gdfplan/internal/observ"
)

// increment when PlanPayload changes
const planCacheSchemaVersion uint16 = 1

// Digest identifies a compile input: program bytes plus the options that
// influence the plan.
type Digest [sha256.Size]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

func (d Digest) IsZero() bool { return d == Digest{} }

// DigestOf hashes a program file together with the plan-relevant options.
func DigestOf(content []byte, opts Options) Digest {
	opts = opts.withDefaults()
	h := sha256.New()
	_, _ = h.Write(content)
	fmt.Fprintf(h, "\x00exec=%s dist=%s mem=%d cache=%d strict=%t cost=%s skip=%t",
		opts.Exec, opts.Distributed, opts.MemBudget, opts.CacheBudget, opts.Strict, opts.Cost, opts.SkipCost)
	for _, name := range slices.Sorted(maps.Keys(opts.Stats.Vars)) {
		d := opts.Stats.Vars[name]
		fmt.Fprintf(h, "\x00var=%q %dx%d", name, d.Rows, d.Cols)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// PlanPayload is the cached outcome of a successful compile.
type PlanPayload struct {
	Schema uint16

	Name string
	Path string

	Entries  []lops.Entry
	Jobs     int
	Estimate float64
	HasCost  bool
	CostType string

	Nodes  int
	Merges int
	Loops  int

	Timings observ.Report
}

// NewPlanPayload captures res for caching or export.
func NewPlanPayload(path string, res *Result) *PlanPayload {
	if res == nil || res.Plan == nil {
		return nil
	}
	p := &PlanPayload{
		Schema:   planCacheSchemaVersion,
		Path:     path,
		Entries:  res.Plan.Entries(),
		Jobs:     res.Plan.Jobs,
		Estimate: res.Estimate,
		HasCost:  res.HasCost,
		Timings:  res.Timer.Report(),
	}
	if res.HasCost {
		p.CostType = res.CostType.String()
	}
	if res.Program != nil {
		p.Name = res.Program.Name
	}
	if res.Graph != nil {
		st := res.Graph.Stats()
		p.Nodes, p.Merges, p.Loops = st.TotalNodes, st.Merge, st.Loops
	}
	return p
}

// Dump writes the plan summary and one operator per line, like lops.Plan.Dump.
func (p *PlanPayload) Dump(w io.Writer) error {
	byExec := make(map[string]int, 3)
	for _, e := range p.Entries {
		byExec[e.Exec]++
	}
	fmt.Fprintf(w, "plan %s: %d operators, %d jobs (CP %d, MR %d, SPARK %d)\n",
		p.Name, len(p.Entries), p.Jobs,
		byExec[lops.ExecCP.String()], byExec[lops.ExecMR.String()], byExec[lops.ExecSpark.String()])
	for _, e := range p.Entries {
		ids := make([]string, len(e.Inputs))
		for i, in := range e.Inputs {
			ids[i] = fmt.Sprintf("#%d", in)
		}
		line := fmt.Sprintf("  #%d %s %s", e.ID, e.Type, e.Exec)
		if e.Name != "" {
			line += " " + e.Name
		}
		if _, err := fmt.Fprintf(w, "%s <- %s\n", line, strings.Join(ids, ", ")); err != nil {
			return err
		}
	}
	if p.HasCost {
		if _, err := fmt.Fprintf(w, "cost (%s): %g\n", p.CostType, p.Estimate); err != nil {
			return err
		}
	}
	return nil
}

// PlanCache keeps plan payloads on disk by Digest. Safe for concurrent use.
type PlanCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenPlanCache opens the cache in dir, or in the user cache directory
// under app when dir is empty.
func OpenPlanCache(dir, app string) (*PlanCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, app)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &PlanCache{dir: dir}, nil
}

func (c *PlanCache) Dir() string { return c.dir }

func (c *PlanCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "plans", key.String()+".mp")
}

// Put writes payload atomically.
func (c *PlanCache) Put(key Digest, payload *PlanPayload) (err error) {
	if c == nil || payload == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the payload stored under key. A missing entry or one written
// with another schema is a miss.
func (c *PlanCache) Get(key Digest, out *PlanPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var payload PlanPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return false, fmt.Errorf("plan cache %s: %w", key, err)
	}
	if payload.Schema != planCacheSchemaVersion {
		return false, nil
	}
	*out = payload
	return true, nil
}

// DropAll removes every cached plan.
func (c *PlanCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
