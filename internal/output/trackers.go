package output

// Tracker names the monotonic counters owned by the output context.
type Tracker int

const (
	// TrackerGlobal is the global ordering value, incremented once per
	// source document and never reset.
	TrackerGlobal Tracker = iota
	// TrackerChapter is the last chapter number assigned.
	TrackerChapter
	// TrackerSubChapter is the next sub-chapter index within the
	// current chapter; reset on a new chapter.
	TrackerSubChapter
	// TrackerSeq is the next local sequence index within the current
	// output-file group; reset on a new chapter.
	TrackerSeq
	// TrackerInsert, TrackerFrontmatter and TrackerBackmatter are the
	// last image numbers assigned per image category.
	TrackerInsert
	TrackerFrontmatter
	TrackerBackmatter
)

// Trackers is the set of named counters for one conversion run. It is
// mutated in place by the segmentation engine and classifier hooks and
// must not be shared across concurrent runs.
type Trackers struct {
	v map[Tracker]int
}

func NewTrackers() *Trackers {
	return &Trackers{v: make(map[Tracker]int)}
}

// Value returns the current counter value (0 if never touched).
func (t *Trackers) Value(name Tracker) int {
	return t.v[name]
}

// Increment bumps the counter by one and returns the new value.
func (t *Trackers) Increment(name Tracker) int {
	t.v[name]++
	return t.v[name]
}

// Decrement undoes a single speculative increment. The counter never
// goes below zero.
func (t *Trackers) Decrement(name Tracker) int {
	if t.v[name] > 0 {
		t.v[name]--
	}
	return t.v[name]
}

// Reset zeroes the counter.
func (t *Trackers) Reset(name Tracker) {
	t.v[name] = 0
}
