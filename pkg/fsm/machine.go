package fsm

import (
	"errors"

	"studylogbot/pkg/store"

	"github.com/looplab/fsm"
)

// mainStates lists every main-phase state; most callback-driven events are
// legal from any of them.
var mainStates = []string{
	string(store.StateHome),
	string(store.StateAwaitingYear),
	string(store.StateAwaitingMonth),
	string(store.StateAwaitingDate),
	string(store.StateAwaitingSubmission),
	string(store.StateConfirmSubmission),
}

var allStates = append([]string{
	string(store.StateRegName),
	string(store.StateRegUsername),
	string(store.StateRegPassword),
}, mainStates...)

// NewDialogFSM builds the dialogue machine hydrated at the user's persisted
// state. The machine only validates transitions; the resulting state is
// written back through the store's conditional update.
func NewDialogFSM(current store.BotState) *fsm.FSM {
	events := fsm.Events{
		{Name: EventRestartRegistration, Src: allStates, Dst: string(store.StateRegName)},
		{Name: EventNameProvided, Src: []string{string(store.StateRegName)}, Dst: string(store.StateRegUsername)},
		{Name: EventUsernameProvided, Src: []string{string(store.StateRegUsername)}, Dst: string(store.StateRegPassword)},
		{Name: EventPasswordProvided, Src: []string{string(store.StateRegPassword)}, Dst: string(store.StateHome)},

		{Name: EventGoHome, Src: mainStates, Dst: string(store.StateHome)},
		{Name: EventStartToday, Src: mainStates, Dst: string(store.StateAwaitingSubmission)},
		{Name: EventStartBackdated, Src: mainStates, Dst: string(store.StateAwaitingYear)},
		{Name: EventYearProvided, Src: []string{string(store.StateAwaitingYear)}, Dst: string(store.StateAwaitingMonth)},
		{Name: EventMonthProvided, Src: []string{string(store.StateAwaitingMonth)}, Dst: string(store.StateAwaitingDate)},
		{Name: EventDayProvided, Src: []string{string(store.StateAwaitingDate)}, Dst: string(store.StateAwaitingSubmission)},
		{Name: EventDraftCaptured, Src: []string{string(store.StateAwaitingSubmission)}, Dst: string(store.StateConfirmSubmission)},
		{Name: EventConfirmed, Src: []string{string(store.StateConfirmSubmission)}, Dst: string(store.StateHome)},
		{Name: EventEditRequested, Src: []string{string(store.StateConfirmSubmission)}, Dst: string(store.StateAwaitingSubmission)},
	}

	return fsm.NewFSM(string(current), events, fsm.Callbacks{})
}

// isNoTransitionError reports whether err is looplab's "already there"
// refusal (declared event with src == dst), which callers treat as success.
func isNoTransitionError(err error) bool {
	if err == nil {
		return false
	}
	var noTransition fsm.NoTransitionError
	return errors.As(err, &noTransition)
}

// isInvalidEventError reports whether the event is not legal from the
// machine's current state.
func isInvalidEventError(err error) bool {
	if err == nil {
		return false
	}
	var invalid fsm.InvalidEventError
	return errors.As(err, &invalid)
}
