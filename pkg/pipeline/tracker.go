package pipeline

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/routegraph/pkg/routing"
)

// logTracker logs the constraint changes applied while patching.
type logTracker struct {
	logger *log.Logger
	order  string
}

func (t logTracker) ValidityChanged(r *routing.Routing, field string, old, new time.Time) {
	t.logger.Debug("validity changed",
		"order", t.order,
		"routing", r.ExternalID(),
		"field", field,
		"old", old.Format(time.RFC3339),
		"new", new.Format(time.RFC3339))
}

func (t logTracker) EdgeChanged(r *routing.Routing, pred, succ string, fields []string) {
	t.logger.Debug("edge changed",
		"order", t.order,
		"routing", r.ExternalID(),
		"edge", pred+"->"+succ,
		"fields", fields)
}
