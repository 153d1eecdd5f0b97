package core

import "sync"

// EventContext carries the payload of an event. Which fields are set depends
// on the code.
type EventContext struct {
	Frame uint64
	Name  string
	Stats PrepareStats
	Err   error
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// A new layout graph replaced the current one.
	/* Context usage:
	 * Name = layouts directory
	 */
	EVENT_CODE_LAYOUTS_RELOADED SystemEventCode = 0x02

	// Reloading the layouts failed, the current graph stays in place.
	/* Context usage:
	 * Name = layouts directory, Err = cause
	 */
	EVENT_CODE_LAYOUTS_RELOAD_FAILED SystemEventCode = 0x03

	// The descriptor sets of a pass are ready.
	/* Context usage:
	 * Frame = frame number, Name = pass name, Stats = counters of the pass
	 */
	EVENT_CODE_PASS_PREPARED SystemEventCode = 0x04

	// Every pass of the frame was prepared.
	/* Context usage:
	 * Frame = frame number, Stats = counters of the frame
	 */
	EVENT_CODE_FRAME_COMPLETED SystemEventCode = 0x05

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]registeredEvent
}

var eventState *eventSystemState

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

func EventInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{registered: make(map[SystemEventCode][]registeredEvent)}
	return true
}

func EventShutdown() error {
	if eventState == nil {
		return nil
	}
	eventState.mu.Lock()
	clear(eventState.registered)
	eventState.mu.Unlock()
	eventState = nil
	return nil
}

/**
 * Register to listen for when events are sent with the provided code. A listener
 * registers at most once per code.
 * @returns true if the event is successfully registered; otherwise false.
 */
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if eventState == nil || code < 0 || code >= MAX_MESSAGE_CODES || onEvent == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	for _, e := range eventState.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code.
 * @returns true if the event is successfully unregistered; otherwise false.
 */
func EventUnregister(code SystemEventCode, listener interface{}) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * @returns true if handled, otherwise false.
 */
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.RLock()
	events := append([]registeredEvent(nil), eventState.registered[code]...)
	eventState.mu.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}
