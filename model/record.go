package model

// Record is one labeled, grouped feature vector of a ranking dataset.
// Records are created once at parse time and never mutated afterwards;
// subsets and groups share them by value of the slice header.
type Record struct {
	Label       uint64    `json:"label"`
	GroupID     uint64    `json:"qid"`
	Features    []float64 `json:"features"` // 0-indexed; serialized 1-indexed
	Description string    `json:"description,omitempty"`
}

// FeatureCount returns the number of features carried by the record.
func (r Record) FeatureCount() int {
	return len(r.Features)
}

// Group is the set of records sharing a GroupID, in first-encountered order.
type Group struct {
	ID      uint64
	Records []Record
}

// Len returns the number of records in the group.
func (g Group) Len() int {
	return len(g.Records)
}

// SubsetName identifies a partition produced by a split or a fold.
type SubsetName string

const (
	SubsetTrain      SubsetName = "train"
	SubsetTest       SubsetName = "test"
	SubsetValidation SubsetName = "validation"
)

// Subset is an ordered selection of whole groups assigned to one partition.
type Subset struct {
	Name   SubsetName `json:"name"`
	Groups []Group    `json:"-"`
}

// Records flattens the subset's groups into a single ordered record slice.
func (s Subset) Records() []Record {
	out := make([]Record, 0, s.RecordCount())
	for _, g := range s.Groups {
		out = append(out, g.Records...)
	}
	return out
}

// RecordCount returns the total number of records across the subset's groups.
func (s Subset) RecordCount() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Records)
	}
	return n
}

// GroupIDs returns the group IDs of the subset in order.
func (s Subset) GroupIDs() []uint64 {
	ids := make([]uint64, len(s.Groups))
	for i, g := range s.Groups {
		ids[i] = g.ID
	}
	return ids
}

// SplitResult holds the subsets of a fractional split. Test and Validation
// are nil when the corresponding fraction was zero.
type SplitResult struct {
	Train      Subset
	Test       *Subset
	Validation *Subset
}

// Subsets returns the populated subsets in train, test, validation order.
func (r SplitResult) Subsets() []Subset {
	out := []Subset{r.Train}
	if r.Test != nil {
		out = append(out, *r.Test)
	}
	if r.Validation != nil {
		out = append(out, *r.Validation)
	}
	return out
}

// Fold is one train/test pair of a K-fold partition. Index is 0-based.
type Fold struct {
	Index int
	Train Subset
	Test  Subset
}

// Dataset is a fully materialized record sequence together with the
// feature count determined from its first record.
type Dataset struct {
	Source       string
	Records      []Record
	FeatureCount int
}

// Len returns the number of records in the dataset.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// SubsetSummary reports the size of one written subset.
type SubsetSummary struct {
	Name        SubsetName `json:"name"`
	Fold        *int       `json:"fold,omitempty"`
	Path        string     `json:"path"`
	GroupCount  int        `json:"group_count"`
	RecordCount int        `json:"record_count"`
}

// PartitionSummary is written next to partition outputs and returned by
// the engine after a split or fold completes.
type PartitionSummary struct {
	Operation    string          `json:"operation"`
	Source       string          `json:"source"`
	Seed         uint64          `json:"seed"`
	FeatureCount int             `json:"feature_count"`
	GroupCount   int             `json:"group_count"`
	RecordCount  int             `json:"record_count"`
	Subsets      []SubsetSummary `json:"subsets"`
}

// TransformReport summarizes a CSV to LETOR conversion.
type TransformReport struct {
	Source  string `json:"source"`
	Output  string `json:"output"`
	Records int    `json:"records"`
	Groups  int    `json:"groups"`
}
