package line

// OperatorPool is the set of operators a station may draw from.
// Membership is fixed once the line is built.
type OperatorPool struct {
	ID    string
	units []*Operator
}

// NewOperatorPool creates a pool over ops.
func NewOperatorPool(id string, ops []*Operator) *OperatorPool {
	return &OperatorPool{ID: id, units: ops}
}

// Capacity returns the number of operators in the pool.
func (p *OperatorPool) Capacity() int {
	return len(p.units)
}

// Operators returns the pool members.
func (p *OperatorPool) Operators() []*Operator {
	return p.units
}

// Contains reports whether op belongs to the pool.
func (p *OperatorPool) Contains(op *Operator) bool {
	for _, u := range p.units {
		if u == op {
			return true
		}
	}
	return false
}

// CheckAvailable reports whether any member is free. It never blocks.
func (p *OperatorPool) CheckAvailable() bool {
	for _, u := range p.units {
		if u.Available() {
			return true
		}
	}
	return false
}

// FindAvailableOperator returns the free operator reserved for s by the Router,
// else any free operator without a reservation, else nil.
func (p *OperatorPool) FindAvailableOperator(s Operated) *Operator {
	for _, u := range p.units {
		if u.Available() && u.assignedTo == s {
			return u
		}
	}
	for _, u := range p.units {
		if u.Available() && u.assignedTo == nil {
			return u
		}
	}
	return nil
}
