// Package navigator is the screen state machine of the application.
//
// The machine is cyclic: there is no terminal screen. Every transition is
// looked up in a fixed table and checked against a guard before it fires;
// a refused transition leaves the current screen unchanged.
package navigator

import (
	"errors"
	"fmt"
	"slices"
)

// Screen is one state of the navigator.
type Screen string

const (
	ScreenInput               Screen = "INPUT"
	ScreenAnalyzing           Screen = "ANALYZING"
	ScreenResult              Screen = "RESULT"
	ScreenActionPlan          Screen = "ACTION_PLAN"
	ScreenLaunchDashboard     Screen = "LAUNCH_DASHBOARD"
	ScreenFinancialProjection Screen = "FINANCIAL_PROJECTION"
	ScreenRoadmap             Screen = "ROADMAP"
	ScreenBudgetPlan          Screen = "BUDGET_PLAN"
	ScreenCashFlowManager     Screen = "CASH_FLOW_MANAGER"
)

// Screens lists every screen.
var Screens = []Screen{
	ScreenInput, ScreenAnalyzing, ScreenResult, ScreenActionPlan, ScreenLaunchDashboard,
	ScreenFinancialProjection, ScreenRoadmap, ScreenBudgetPlan, ScreenCashFlowManager,
}

// Event triggers a transition.
type Event string

const (
	EventSubmit            Event = "submit"
	EventAnalysisSucceeded Event = "analysisSucceeded"
	EventAnalysisFailed    Event = "analysisFailed"
	EventViewActionPlan    Event = "viewActionPlan"
	EventViewProjection    Event = "viewProjection"
	EventViewRoadmap       Event = "viewRoadmap"
	EventViewReport        Event = "viewReport"
	EventLaunch            Event = "launch"
	EventGenerateBudget    Event = "generateBudget"
	EventViewRiskManager   Event = "viewRiskManager"
	EventBack              Event = "back"
	EventEditMode          Event = "editMode"
	EventStartNew          Event = "startNew"
)

// Events lists every event.
var Events = []Event{
	EventSubmit, EventAnalysisSucceeded, EventAnalysisFailed, EventViewActionPlan,
	EventViewProjection, EventViewRoadmap, EventViewReport, EventLaunch, EventGenerateBudget,
	EventViewRiskManager, EventBack, EventEditMode, EventStartNew,
}

// ErrTransitionRefused is returned when the current screen has no such
// transition or its guard does not hold.
var ErrTransitionRefused = errors.New("transition refused")

// Conditions is the state the guards are evaluated against.
type Conditions struct {
	Submittable bool
	HasRoot     bool
	HasBudget   bool
	HasCashFlow bool
	HasLaunch   bool
}

// transitions holds the screen-specific edges.
var transitions = map[Screen]map[Event]Screen{
	ScreenInput: {
		EventSubmit: ScreenAnalyzing,
	},
	ScreenAnalyzing: {
		EventAnalysisSucceeded: ScreenResult,
		EventAnalysisFailed:    ScreenInput,
	},
	ScreenResult: {
		EventViewActionPlan: ScreenActionPlan,
		EventViewProjection: ScreenFinancialProjection,
		EventViewRoadmap:    ScreenRoadmap,
	},
	ScreenActionPlan: {
		EventLaunch:      ScreenLaunchDashboard,
		EventViewRoadmap: ScreenRoadmap,
		EventBack:        ScreenResult,
	},
	ScreenLaunchDashboard: {
		EventViewRoadmap: ScreenRoadmap,
		EventBack:        ScreenActionPlan,
	},
	ScreenFinancialProjection: {
		EventBack: ScreenResult,
	},
	ScreenRoadmap: {
		EventGenerateBudget: ScreenBudgetPlan,
		EventBack:           ScreenActionPlan,
	},
	ScreenBudgetPlan: {
		EventViewRiskManager: ScreenCashFlowManager,
		EventBack:            ScreenRoadmap,
	},
	ScreenCashFlowManager: {
		EventBack: ScreenBudgetPlan,
	},
}

// global edges apply from every screen.
var global = map[Event]Screen{
	EventEditMode:   ScreenInput,
	EventStartNew:   ScreenInput,
	EventViewReport: ScreenResult,
}

var guards = map[Event]func(Conditions) bool{
	EventSubmit:          func(c Conditions) bool { return c.Submittable },
	EventViewActionPlan:  func(c Conditions) bool { return c.HasRoot },
	EventViewProjection:  func(c Conditions) bool { return c.HasRoot },
	EventViewRoadmap:     func(c Conditions) bool { return c.HasRoot },
	EventViewReport:      func(c Conditions) bool { return c.HasRoot },
	EventLaunch:          func(c Conditions) bool { return c.HasLaunch },
	EventGenerateBudget:  func(c Conditions) bool { return c.HasBudget },
	EventViewRiskManager: func(c Conditions) bool { return c.HasCashFlow },
}

// ParseEvent converts an event name to an Event.
func ParseEvent(name string) (Event, error) {
	e := Event(name)
	if !slices.Contains(Events, e) {
		return "", fmt.Errorf("unknown event %q", name)
	}
	return e, nil
}

// Target returns the screen event leads to from the given screen, ignoring
// guards. ok is false when there is no such edge.
func Target(from Screen, event Event) (to Screen, ok bool) {
	if to, ok = transitions[from][event]; ok {
		return to, true
	}
	// No report link while analyzing.
	if event == EventViewReport && from == ScreenAnalyzing {
		return "", false
	}
	to, ok = global[event]
	return to, ok
}

// Navigator tracks the current screen. It is not safe for concurrent use;
// callers serialize access.
type Navigator struct {
	current Screen
}

// New returns a navigator on the INPUT screen.
func New() *Navigator {
	return &Navigator{current: ScreenInput}
}

// Current returns the current screen.
func (n *Navigator) Current() Screen { return n.current }

// Can reports whether event would fire under c.
func (n *Navigator) Can(event Event, c Conditions) bool {
	_, err := n.resolve(event, c)
	return err == nil
}

// Fire moves to the screen event leads to. A refused transition returns
// ErrTransitionRefused and leaves the screen unchanged.
func (n *Navigator) Fire(event Event, c Conditions) (Screen, error) {
	to, err := n.resolve(event, c)
	if err != nil {
		return n.current, err
	}
	n.current = to
	return to, nil
}

// Available lists the events that would fire under c, in Events order.
func (n *Navigator) Available(c Conditions) []Event {
	var out []Event
	for _, e := range Events {
		if n.Can(e, c) {
			out = append(out, e)
		}
	}
	return out
}

// Reset returns to INPUT unconditionally.
func (n *Navigator) Reset() { n.current = ScreenInput }

func (n *Navigator) resolve(event Event, c Conditions) (Screen, error) {
	to, ok := Target(n.current, event)
	if !ok {
		return "", fmt.Errorf("%w: %s has no %q transition", ErrTransitionRefused, n.current, event)
	}
	if guard, ok := guards[event]; ok && !guard(c) {
		return "", fmt.Errorf("%w: %q guard not satisfied on %s", ErrTransitionRefused, event, n.current)
	}
	return to, nil
}
