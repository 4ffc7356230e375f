package brick

import "errors"

// Sentinel errors for brick lookups and typed accessors.
var (
	// ErrNotFound is returned when a brick key is unknown to the store.
	ErrNotFound = errors.New("brick: key not found")

	// ErrWrongType is returned when a typed accessor does not match the
	// store's element kind.
	ErrWrongType = errors.New("brick: requested type does not match store kind")

	// ErrShapeChanged is returned by UpdateData when the replacement
	// payload's length does not match the existing brick's voxel count.
	// Shape changes require a remove-then-add, per spec.
	ErrShapeChanged = errors.New("brick: update must preserve brick shape")

	// ErrKindMismatch is returned by AddBrick when a brick's element kind
	// does not match the store's established kind. Mixed types within one
	// dataset are not supported.
	ErrKindMismatch = errors.New("brick: mixed element types are not supported")
)
