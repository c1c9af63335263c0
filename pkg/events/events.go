// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package events is the runtime event hub shared by every component.
//
// Components report their lifecycle through events rather than logging
// directly: each event has a severity, a category and a stable message.
// Messages double as subscription keys, so a component can wait for
// another component's event without holding a reference to it.
//
// A "stop" event is fatal: the hub logs it and terminates the process.
// Only configuration and bootstrap failures emit "stop"; the admission
// path never does.
package events

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// Severity classifies an event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityStop    Severity = "stop"
)

// Category identifies the emitting subsystem.
type Category string

const (
	CategoryConfig   Category = "config"
	CategoryLedger   Category = "ledger"
	CategoryArchange Category = "archange"
	CategoryServer   Category = "server"
)

// Event is a single runtime event.
type Event struct {
	Severity  Severity
	Category  Category
	Message   string
	Timestamp time.Time

	// Fields carries optional structured attributes for the log line.
	Fields map[string]any
}

type listener struct {
	message  string
	callback func(Event)
	once     bool
}

// Hub dispatches runtime events to the log and to message-keyed listeners.
type Hub struct {
	mu        sync.Mutex
	listeners []listener

	// exit is called on a stop event. Overridable for tests.
	exit func(code int)
}

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		exit: os.Exit,
	}
}

// Emit records an event: it is logged, counted, and delivered to any
// listener registered for its message. A stop event terminates the process.
func (h *Hub) Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	attrs := make([]any, 0, 2+2*len(e.Fields))
	attrs = append(attrs, "category", string(e.Category))
	for k, v := range e.Fields {
		attrs = append(attrs, k, v)
	}

	switch e.Severity {
	case SeverityWarning:
		slog.Warn(e.Message, attrs...)
	case SeverityStop:
		slog.Error(e.Message, attrs...)
	default:
		slog.Info(e.Message, attrs...)
	}

	eventsTotal.WithLabelValues(string(e.Severity), string(e.Category)).Inc()

	h.dispatch(e)

	if e.Severity == SeverityStop {
		h.exit(1)
	}
}

// SetExit overrides the process termination hook used by stop events.
// Tests use this to observe fatal events without exiting.
func (h *Hub) SetExit(exit func(code int)) {
	h.exit = exit
}

// Listen registers a callback for events carrying exactly the given message.
// With once set, the listener is removed after its first delivery.
func (h *Hub) Listen(message string, callback func(Event), once bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.listeners = append(h.listeners, listener{
		message:  message,
		callback: callback,
		once:     once,
	})
}

func (h *Hub) dispatch(e Event) {
	h.mu.Lock()
	var matched []func(Event)
	remaining := h.listeners[:0]
	for _, l := range h.listeners {
		if l.message == e.Message {
			matched = append(matched, l.callback)
			if l.once {
				continue
			}
		}
		remaining = append(remaining, l)
	}
	h.listeners = remaining
	h.mu.Unlock()

	// Callbacks run outside the lock so they may re-register.
	for _, cb := range matched {
		cb(e)
	}
}

// Info is a shorthand for emitting an info event.
func (h *Hub) Info(category Category, message string, fields map[string]any) {
	h.Emit(Event{Severity: SeverityInfo, Category: category, Message: message, Fields: fields})
}

// Warning is a shorthand for emitting a warning event.
func (h *Hub) Warning(category Category, message string, fields map[string]any) {
	h.Emit(Event{Severity: SeverityWarning, Category: category, Message: message, Fields: fields})
}

// Stop is a shorthand for emitting a fatal stop event.
func (h *Hub) Stop(category Category, message string, fields map[string]any) {
	h.Emit(Event{Severity: SeverityStop, Category: category, Message: message, Fields: fields})
}
