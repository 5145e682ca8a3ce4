// Package gesture turns pointer drag-and-drop and touch drags into placement
// events. Both input modalities are translated by adapters into one Event
// stream driving a single Controller state machine.
package gesture

import (
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

// Modality identifies the physical input that produced a gesture.
type Modality string

const (
	Pointer Modality = "pointer"
	Touch   Modality = "touch"
)

// Kind is the phase of a gesture event.
type Kind string

const (
	KindStart  Kind = "start"
	KindMove   Kind = "move"
	KindEnd    Kind = "end"
	KindCancel Kind = "cancel"
)

// Event is the modality-independent input consumed by Controller.Handle.
type Event struct {
	Kind     Kind           `json:"kind"`
	Modality Modality       `json:"modality"`
	Position geometry.Point `json:"position"`
	Time     time.Time      `json:"time"`
}

// State is the controller's coarse state.
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// DragSession is the ephemeral state of one active gesture.
type DragSession struct {
	Origin   geometry.Point
	Current  geometry.Point
	Modality Modality
	Hovered  DropTarget
	Started  time.Time
}

// PlacementEvent is emitted when a gesture is released over a drop target and
// the release point lies on the rendered image.
type PlacementEvent struct {
	TargetID string `json:"targetId"`
	// ContainerPosition is the release point relative to the target's origin.
	ContainerPosition geometry.Point              `json:"containerPosition"`
	ImagePercent      geometry.NormalizedPosition `json:"imagePercent"`
	Modality          Modality                    `json:"modality"`
}

// Preview describes the live marker shown while hovering a target.
type Preview struct {
	TargetID string         `json:"targetId,omitempty"`
	Position geometry.Point `json:"position"`
	Visible  bool           `json:"visible"`
}

// CancelReason explains why a gesture ended without a placement.
type CancelReason string

const (
	ReasonReleasedOutside CancelReason = "released_outside"
	ReasonInterrupted     CancelReason = "interrupted"
	ReasonSuperseded      CancelReason = "superseded"
	ReasonTargetRemoved   CancelReason = "target_removed"
	ReasonTargetDisabled  CancelReason = "target_disabled"
)

// Outcome is what Handle did with an event.
type Outcome int

const (
	// OutcomeNone means the event updated or was ignored by the state machine.
	OutcomeNone Outcome = iota
	// OutcomeDropped means a PlacementEvent was emitted.
	OutcomeDropped
	// OutcomeCancelled means the gesture ended without a placement.
	OutcomeCancelled
	// OutcomeMissed means the release landed on a target's letterbox padding.
	OutcomeMissed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeDropped:
		return "dropped"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeMissed:
		return "missed"
	default:
		return "unknown"
	}
}
