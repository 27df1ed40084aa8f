package queryrequest

// FindTableRelationships returns the relationship bundle declared for the
// given source table, if any.
func (r *Request) FindTableRelationships(table TableName) (*TableRelationships, bool) {
	for i := range r.TableRelationships {
		if r.TableRelationships[i].SourceTable.Equal(table) {
			return &r.TableRelationships[i], true
		}
	}
	return nil, false
}

// ForeachColumns returns the binding keys of the first foreach row, in
// insertion order. Per the foreach invariant, all rows are expected to share
// this key set; rows whose key set differs are not detected here.
func (r *Request) ForeachColumns() []string {
	if len(r.Foreach) == 0 {
		return nil
	}
	first := r.Foreach[0]
	cols := make([]string, 0, first.Keys.Len())
	for pair := first.Keys.Oldest(); pair != nil; pair = pair.Next() {
		cols = append(cols, pair.Key)
	}
	return cols
}
