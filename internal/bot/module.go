package bot

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/garyellow/chatbot-go/internal/config"
	domerrors "github.com/garyellow/chatbot-go/internal/errors"
)

// Module is a feature area contributing handlers. Command handlers are
// bound to patterns by name through the definition source; actions and
// events are bound directly.
type Module interface {
	Name() string
	Commands() map[string]Handler
	Actions() []Route
	Events() []EventRoute
}

// EventRoute binds a platform event type to a handler.
type EventRoute struct {
	Type    string
	Name    string
	Handler Handler
}

// EventTable maps event types to handlers, one handler per type.
type EventTable struct {
	mu     sync.RWMutex
	routes map[string]EventRoute
	sealed bool
}

// NewEventTable creates an empty table.
func NewEventTable() *EventTable {
	return &EventTable{routes: make(map[string]EventRoute)}
}

// Add registers route. A second handler for the same type is rejected.
func (t *EventTable) Add(route EventRoute) error {
	if route.Type == "" || route.Handler == nil {
		return domerrors.NewValidationError("event", "event route needs a type and a handler")
	}
	if route.Name == "" {
		route.Name = route.Type
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return domerrors.ErrSealed
	}
	if existing, ok := t.routes[route.Type]; ok {
		return domerrors.NewDuplicateRegistrationError("event", route.Type, existing.Name)
	}
	t.routes[route.Type] = route
	return nil
}

// Lookup returns the route for an event type.
func (t *EventTable) Lookup(eventType string) (EventRoute, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.routes[eventType]
	return r, ok
}

// Types lists the registered event types, sorted.
func (t *EventTable) Types() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.routes))
	for k := range t.routes {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Seal freezes the table.
func (t *EventTable) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

// BindDefinitions registers one entry per definition, resolving handler
// names through handlers. All problems are reported together.
func (r *Registry) BindDefinitions(defs []config.CommandDefinition, handlers map[string]Handler) error {
	var errs []error
	for _, def := range defs {
		h, ok := handlers[def.Handler]
		if !ok {
			errs = append(errs, fmt.Errorf("command %q: unknown handler %q", def.Pattern, def.Handler))
			continue
		}
		err := r.Register(Entry{
			Pattern:    def.Pattern,
			Regex:      def.Regex,
			Name:       def.Handler,
			Handler:    h,
			Help:       def.Help,
			Privileged: def.Privileged,
			Flags:      FlagSpecs(def.Flags),
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tables are the sealed lookup tables a Dispatcher reads.
type Tables struct {
	Registry *Registry
	Router   *Router
	Events   *EventTable
}

// Build binds defs and modules into sealed tables. Any duplicate pattern,
// action, prefix, event or handler name fails the whole build.
func Build(defs []config.CommandDefinition, modules ...Module) (*Tables, error) {
	t := &Tables{
		Registry: NewRegistry(),
		Router:   NewRouter(),
		Events:   NewEventTable(),
	}

	handlers, err := CollectHandlers(modules...)
	if err != nil {
		return nil, err
	}

	var errs []error
	if err := t.Registry.BindDefinitions(defs, handlers); err != nil {
		errs = append(errs, err)
	}
	for _, m := range modules {
		for _, route := range m.Actions() {
			if err := t.Router.Add(route); err != nil {
				errs = append(errs, fmt.Errorf("module %s: %w", m.Name(), err))
			}
		}
		for _, route := range m.Events() {
			if err := t.Events.Add(route); err != nil {
				errs = append(errs, fmt.Errorf("module %s: %w", m.Name(), err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	t.Registry.Seal()
	t.Router.Seal()
	t.Events.Seal()
	return t, nil
}

// CollectHandlers merges the command handlers of modules by name.
func CollectHandlers(modules ...Module) (map[string]Handler, error) {
	handlers := make(map[string]Handler)
	owner := make(map[string]string)
	var errs []error
	for _, m := range modules {
		for name, h := range m.Commands() {
			if prev, ok := owner[name]; ok {
				errs = append(errs, domerrors.NewDuplicateRegistrationError("handler", name, prev))
				continue
			}
			handlers[name] = h
			owner[name] = m.Name()
		}
	}
	return handlers, errors.Join(errs...)
}
