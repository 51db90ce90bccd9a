package engine

import (
	"time"

	"github.com/google/uuid"
)

// NoticeKind classifies asynchronous failures surfaced to the user.
type NoticeKind string

const (
	// NoticeSyncWriteFailed reports a rejected durable append. For the
	// assistant turn this means displayed and persisted state diverge;
	// the displayed turn is kept ("display trusts the pipeline").
	NoticeSyncWriteFailed NoticeKind = "sync_write_failed"

	// NoticePipelineFailed reports a failed pipeline run. The
	// speculative user turn has already been rolled back.
	NoticePipelineFailed NoticeKind = "pipeline_failed"
)

// Notice is a reportable asynchronous failure, suitable for a
// dismissable user notice.
type Notice struct {
	Kind      NoticeKind
	SessionID uuid.UUID
	Err       error
	At        time.Time
}
