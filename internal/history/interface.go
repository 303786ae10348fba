package history

import "context"

type Repository interface {
	Record(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (*Run, error)
	// List returns the latest runs, newest first.
	List(ctx context.Context, limit int) ([]Run, error)
}
