package types

// WriteOptions controls how a store operation commits.
type WriteOptions struct {
	// DryRun computes the result without touching any file.
	DryRun bool
}

// DocChange reports what an operation did to one replica document.
type DocChange struct {
	File     string `json:"file"`
	Path     string `json:"path"`
	Modified bool   `json:"modified"`
	Before   string `json:"before,omitempty"`
	After    string `json:"after,omitempty"`
}

// UpdateResult is the outcome of committing one mutation.
type UpdateResult struct {
	ID       ID          `json:"id"`
	Modified bool        `json:"modified"`
	Before   string      `json:"before"`
	After    string      `json:"after"`
	Docs     []DocChange `json:"docs,omitempty"`
	Mutation *Mutation   `json:"-"`
}

// DeleteResult is the outcome of deleting one record.
type DeleteResult struct {
	ID   ID          `json:"id"`
	Line string      `json:"line"`
	Docs []DocChange `json:"docs,omitempty"`
}

// SplitResult is the outcome of splitting a task in two.
type SplitResult struct {
	A            ID          `json:"a"`
	B            ID          `json:"b"`
	OriginalLine string      `json:"originalLine"`
	NewLines     []string    `json:"newLines"`
	Docs         []DocChange `json:"docs,omitempty"`
}

// AddResult is the outcome of adding one record.
type AddResult struct {
	ID   ID     `json:"id"`
	Bug  bool   `json:"bug"`
	Line string `json:"line"`
}

// Definition is one sighting of a record in a source document.
type Definition struct {
	Source string
	Record Record
}

// Orphan is a table row in a replica whose id is absent from the roadmap.
type Orphan struct {
	File string `json:"file"`
	ID   ID     `json:"id"`
}

// RoadmapSource names the canonical roadmap in definition lists.
const RoadmapSource = "Roadmap"

// TaskStore is the only component that reads or writes the roadmap and
// its replicas.
type TaskStore interface {
	// Load parses the canonical roadmap.
	Load() (*Snapshot, error)

	// Commit writes a mutation to the roadmap and to every replica row
	// of the same record.
	Commit(m *Mutation, opts WriteOptions) (*UpdateResult, error)

	// UpdateTask builds a mutation from edit against the current record
	// and commits it.
	UpdateTask(id ID, edit Edit, opts WriteOptions) (*UpdateResult, error)

	// DeleteTask removes a record from the roadmap and its replicas.
	DeleteTask(id ID, opts WriteOptions) (*DeleteResult, error)

	// SplitTask turns one task into a done part A and an open part B.
	SplitTask(id ID, descA, descB string, opts WriteOptions) (*SplitResult, error)

	// BulkDeleteTasks deletes each id independently. Failures are
	// collected per id while the others still commit.
	BulkDeleteTasks(ids []ID, opts WriteOptions) (BatchResult[DeleteResult], error)

	// AddTask appends a new task or bug to its table.
	AddTask(rec NewRecord, opts WriteOptions) (*AddResult, error)

	// SyncReplicas pushes the canonical values of id into every replica.
	SyncReplicas(id ID, opts WriteOptions) ([]DocChange, error)

	// FindDocsContainingTask lists the replica documents embedding id.
	FindDocsContainingTask(id ID) ([]string, error)

	// GetAllTaskDefinitions collects every sighting of every task id,
	// the roadmap first under RoadmapSource.
	GetAllTaskDefinitions() (map[ID][]Definition, error)

	// FindOrphanReferences lists replica rows whose id is not in valid.
	FindOrphanReferences(valid map[ID]bool) ([]Orphan, error)

	// Begin starts a batch; writes are held until Flush.
	Begin(op string) error

	// Flush writes every pending change and ends the batch.
	Flush() error

	// Close flushes pending writes and releases resources.
	Close() error
}
