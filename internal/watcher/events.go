package watcher

import (
	"path"
	"time"

	"stratum/internal/rules"
	"stratum/internal/validate"
)

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// FileEvent is one debounced filesystem change. Path is relative to the
// watched root, slash-separated.
type FileEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Classifier decides how urgent a change is. Edits to the ruleset or the
// descriptor invalidate every planned path and trigger a full re-plan at high
// priority; layer sources revalidate at normal priority; everything else
// trails at low.
type Classifier struct {
	rules      string
	descriptor string
	rs         *rules.RuleSet
}

func NewClassifier(rulesPath, descriptorPath string, rs *rules.RuleSet) *Classifier {
	c := &Classifier{rs: rs}
	if rulesPath != "" {
		c.rules = path.Clean(rulesPath)
	}
	if descriptorPath != "" {
		c.descriptor = path.Clean(descriptorPath)
	}
	return c
}

// Classify maps a changed path to a job priority and whether the change
// demands a full re-plan.
func (c *Classifier) Classify(rel string) (validate.Priority, bool) {
	rel = path.Clean(rel)
	if (c.rules != "" && rel == c.rules) || (c.descriptor != "" && rel == c.descriptor) {
		return validate.PriorityHigh, true
	}
	if c.rs != nil {
		if _, ok := c.rs.LayerFor(rel); ok {
			return validate.PriorityNormal, false
		}
	}
	return validate.PriorityLow, false
}
