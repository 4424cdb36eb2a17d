// Package grouping derives query groups from a record sequence.
package grouping

import (
	"context"
	"iter"

	"github.com/gcbaptista/go-letor/model"
)

// Groups is an ordered mapping of group ID to member records. Order is
// first appearance in the input; records keep their input order.
type Groups struct {
	order []uint64
	index map[uint64]int
	list  []model.Group
}

// New creates an empty Groups.
func New() *Groups {
	return &Groups{index: make(map[uint64]int)}
}

// Add appends a record to its group, creating the group on first sight.
func (g *Groups) Add(r model.Record) {
	i, ok := g.index[r.GroupID]
	if !ok {
		i = len(g.list)
		g.index[r.GroupID] = i
		g.order = append(g.order, r.GroupID)
		g.list = append(g.list, model.Group{ID: r.GroupID})
	}
	g.list[i].Records = append(g.list[i].Records, r)
}

// Len returns the number of distinct groups.
func (g *Groups) Len() int {
	return len(g.list)
}

// RecordCount returns the total number of records across all groups.
func (g *Groups) RecordCount() int {
	n := 0
	for _, grp := range g.list {
		n += len(grp.Records)
	}
	return n
}

// IDs returns the group IDs in first-seen order.
func (g *Groups) IDs() []uint64 {
	return append([]uint64(nil), g.order...)
}

// Get returns the records of a group.
func (g *Groups) Get(id uint64) (model.Group, bool) {
	i, ok := g.index[id]
	if !ok {
		return model.Group{}, false
	}
	return g.list[i], true
}

// All returns the groups in first-seen order. The returned slice must not
// be modified.
func (g *Groups) All() []model.Group {
	return g.list
}

// GroupBy groups records in a single pass.
func GroupBy(records []model.Record) *Groups {
	g := New()
	for _, r := range records {
		g.Add(r)
	}
	return g
}

// GroupSeq groups a lazy record sequence, stopping at the first error from
// the sequence or from ctx.
func GroupSeq(ctx context.Context, seq iter.Seq2[model.Record, error]) (*Groups, error) {
	g := New()
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.Add(r)
	}
	return g, nil
}
