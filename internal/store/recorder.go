package store

import (
	"time"

	"timefold/internal/logging"
	"timefold/internal/session"
)

// Recorder archives session transitions. Archive failures are logged and
// never interrupt the session.
type Recorder struct {
	archive *Archive
	now     func() time.Time
}

// NewRecorder returns a session observer writing to archive.
func NewRecorder(archive *Archive) *Recorder {
	return &Recorder{archive: archive, now: time.Now}
}

// OnTransition implements session.Observer.
func (r *Recorder) OnTransition(t session.Transition) {
	if t.Entry == nil {
		return
	}

	var err error
	switch t.Action {
	case session.ActionBegin:
		err = r.archive.RecordSeed(t.SessionID, r.now(), *t.Entry)
	case session.ActionExplore:
		err = r.archive.RecordStep(t.SessionID, t.Seq, *t.Entry, r.now())
	default:
		return
	}
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("Archive write failed for %s (%s): %v", t.SessionID, t.Action, err)
	}
}
