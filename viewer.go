package differ

import "context"

// Viewer displays an interactive session and blocks until the user exits.
type Viewer interface {
	View(ctx context.Context, s *Session) error
}
