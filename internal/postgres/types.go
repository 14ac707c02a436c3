package postgres

// Config holds PostgreSQL connection settings.
type Config struct {
	URL string
}

// Relation kinds reported by the catalog.
const (
	KindTable = "table"
	KindView  = "view"
)

// Relation is a table or view SQL text can name.
type Relation struct {
	Schema        string `json:"schema"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	EstimatedRows int64  `json:"estimatedRows"` // from pg_class.reltuples
}

// QualifiedName returns schema.name.
func (r Relation) QualifiedName() string {
	return r.Schema + "." + r.Name
}

// Column is one column of a relation.
type Column struct {
	Schema   string `json:"schema"`
	Table    string `json:"table"`
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	Nullable bool   `json:"nullable"`
}

// Activity holds scan counters from pg_stat_user_tables.
type Activity struct {
	Schema     string `json:"schema"`
	Name       string `json:"name"`
	SeqScan    int64  `json:"seqScan"`
	IdxScan    int64  `json:"idxScan"`
	LiveTuples int64  `json:"liveTuples"`
}

// Scans is the total number of sequential and index scans.
func (a Activity) Scans() int64 {
	return a.SeqScan + a.IdxScan
}

// Catalog is the subset of a database catalog the drift check compares
// code references against.
type Catalog struct {
	ServerVersion string     `json:"serverVersion,omitempty"`
	Relations     []Relation `json:"relations"`
	Columns       []Column   `json:"columns"`
	Activity      []Activity `json:"activity"`
}
