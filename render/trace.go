package render

import (
	"compress/flate"
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/AnatoleLucet/sigl"
)

// Record is one traced attempt at applying an action.
type Record struct {
	Frame    int    `msgpack:"frame"`
	Drained  string `msgpack:"drained"`
	Owner    string `msgpack:"owner"`
	Kind     string `msgpack:"kind"`
	Affinity string `msgpack:"affinity"`
	Applied  bool   `msgpack:"applied"`
}

// Trace records the actions drains apply or defer, grouped by frame. Pass
// Observe to scene.Options.Observers (or sigl.WithObserver) to feed it.
type Trace struct {
	mu      sync.Mutex
	frame   int
	limit   int
	records []Record
}

// NewTrace returns a trace keeping at most limit records; older records are
// dropped first. A limit of zero keeps everything.
func NewTrace(limit int) *Trace {
	return &Trace{limit: limit}
}

func (t *Trace) Observe(ev sigl.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, Record{
		Frame:    t.frame,
		Drained:  ev.Drained,
		Owner:    ev.Owner,
		Kind:     ev.Kind.String(),
		Affinity: ev.Affinity.String(),
		Applied:  ev.Applied,
	})
	if t.limit > 0 && len(t.records) > t.limit {
		t.records = append(t.records[:0], t.records[len(t.records)-t.limit:]...)
	}
}

// NextFrame starts a new frame; records observed from now on carry its
// number.
func (t *Trace) NextFrame() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frame++
	return t.frame
}

func (t *Trace) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Record(nil), t.records...)
}

// Frame returns the records of one frame.
func (t *Trace) Frame(frame int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	var recs []Record
	for _, r := range t.records {
		if r.Frame == frame {
			recs = append(recs, r)
		}
	}
	return recs
}

type traceFile struct {
	Frame   int      `msgpack:"frame"`
	Records []Record `msgpack:"records"`
}

// Write stores the trace as deflated msgpack.
func (t *Trace) Write(w io.Writer) error {
	t.mu.Lock()
	tf := traceFile{Frame: t.frame, Records: append([]Record(nil), t.records...)}
	t.mu.Unlock()

	fw, err := flate.NewWriter(w, flate.BestSpeed)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(fw).Encode(&tf); err != nil {
		return err
	}
	return fw.Close()
}

// ReadTrace loads a trace stored with Write. The loaded trace has no limit.
func ReadTrace(r io.Reader) (*Trace, error) {
	fr := flate.NewReader(r)
	defer fr.Close()

	var tf traceFile
	if err := msgpack.NewDecoder(fr).Decode(&tf); err != nil {
		return nil, err
	}
	return &Trace{frame: tf.Frame, records: tf.Records}, nil
}

func (t *Trace) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := t.Write(f); err != nil {
		return err
	}
	return f.Close()
}

func LoadTrace(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadTrace(f)
}
