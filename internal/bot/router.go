package bot

import (
	"slices"
	"strings"
	"sync"

	domerrors "github.com/garyellow/chatbot-go/internal/errors"
)

// Route binds an action identifier, or an identifier prefix, to a handler.
type Route struct {
	ID         string
	Prefix     bool
	Name       string
	Handler    Handler
	Privileged bool
}

// Router resolves UI action identifiers. Exact routes are looked up first,
// then prefix routes in the order they were added.
type Router struct {
	mu       sync.RWMutex
	exact    map[string]Route
	prefixes []Route
	sealed   bool
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{exact: make(map[string]Route)}
}

// Add registers a route. IDs and prefixes must be unique.
func (r *Router) Add(route Route) error {
	if route.ID == "" {
		return domerrors.NewValidationError("action_id", "empty action id")
	}
	if route.Handler == nil {
		return domerrors.NewValidationError("handler", "action "+route.ID+" has no handler")
	}
	if route.Name == "" {
		route.Name = route.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return domerrors.ErrSealed
	}
	if route.Prefix {
		for _, p := range r.prefixes {
			if p.ID == route.ID {
				return domerrors.NewDuplicateRegistrationError("prefix", route.ID, p.Name)
			}
		}
		r.prefixes = append(r.prefixes, route)
		return nil
	}
	if existing, ok := r.exact[route.ID]; ok {
		return domerrors.NewDuplicateRegistrationError("action", route.ID, existing.Name)
	}
	r.exact[route.ID] = route
	return nil
}

// Seal freezes the routing table.
func (r *Router) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Resolve finds the route for actionID. No route is a no-op, not an error.
func (r *Router) Resolve(actionID string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if route, ok := r.exact[actionID]; ok {
		return route, true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(actionID, p.ID) {
			return p, true
		}
	}
	return Route{}, false
}

// Routes returns exact routes sorted by ID followed by prefix routes in
// evaluation order.
func (r *Router) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Route, 0, len(r.exact)+len(r.prefixes))
	for _, route := range r.exact {
		out = append(out, route)
	}
	slices.SortFunc(out, func(a, b Route) int { return strings.Compare(a.ID, b.ID) })
	return append(out, r.prefixes...)
}
