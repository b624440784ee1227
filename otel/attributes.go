package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	AttrCollection  = attribute.Key("changefeed.collection")
	AttrPartition   = attribute.Key("changefeed.partition")
	AttrFetchStatus = attribute.Key("changefeed.fetch.status")
	AttrErrorKind   = attribute.Key("changefeed.error.kind")
	AttrPhase       = attribute.Key("changefeed.phase")
)

// Fetch status values
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusError   = "error"
)

// Phase values: where in the loop an error or retry happened
const (
	PhaseFetch      = "fetch"
	PhaseDispatch   = "dispatch"
	PhaseCheckpoint = "checkpoint"
)
