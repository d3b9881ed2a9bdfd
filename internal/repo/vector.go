package repo

import (
	"database/sql/driver"

	"github.com/pgvector/pgvector-go"
)

// nullVector scans a nullable vector column; NULL leaves Slice empty.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src interface{}) error {
	if src == nil {
		n.valid = false
		return nil
	}
	if err := n.vec.Scan(src); err != nil {
		return err
	}
	n.valid = true
	return nil
}

func (n nullVector) Value() (driver.Value, error) {
	if !n.valid {
		return nil, nil
	}
	return n.vec.Value()
}

func (n nullVector) Slice() []float32 {
	if !n.valid {
		return nil
	}
	return n.vec.Slice()
}
