package knowledge

import "errors"

// ErrDimensionMismatch is returned by Rank when a candidate vector does not
// share the query vector's length. The reconciler filters mismatched records
// before ranking, so hitting this error means the filter was bypassed.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")
