package http

import (
	"net/http"
	"net/url"
	"strings"
)

// RouterConfig wires handlers and middleware into the HTTP surface.
// SessionMiddleware guards every route except signup and login; Middleware
// wraps the whole router, outermost first.
type RouterConfig struct {
	Auth              *AuthHandler
	Rooms             *RoomHandler
	Bookings          *BookingHandler
	Watch             *WatchHandler
	SessionMiddleware func(http.Handler) http.Handler
	Middleware        []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	protected := http.NewServeMux()

	if cfg.Auth != nil {
		mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Signup(w, r)
		})
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		protected.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Auth.CurrentUser(w, r)
			case http.MethodDelete:
				cfg.Auth.DeleteCurrentSession(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
	}

	if cfg.Rooms != nil {
		protected.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.List(w, r)
			case http.MethodPost:
				cfg.Rooms.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		protected.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
			routeRoomSubtree(cfg, w, r)
		})
	}

	var handler http.Handler = protected
	if cfg.SessionMiddleware != nil {
		handler = cfg.SessionMiddleware(handler)
	}
	mux.Handle("/sessions/current", handler)
	mux.Handle("/rooms", handler)
	mux.Handle("/rooms/", handler)

	var root http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			root = cfg.Middleware[i](root)
		}
	}

	return root
}

// routeRoomSubtree dispatches /rooms/{id}[/members[/{email}]|/bookings[/{bookingID}|/watch]].
func routeRoomSubtree(cfg RouterConfig, w http.ResponseWriter, r *http.Request) {
	segments := splitPath(strings.TrimPrefix(r.URL.Path, "/rooms/"))
	if len(segments) == 0 || segments[0] == "" {
		http.NotFound(w, r)
		return
	}

	ctx := ContextWithRoomID(r.Context(), segments[0])
	r = r.WithContext(ctx)

	switch {
	case len(segments) == 1:
		switch r.Method {
		case http.MethodGet:
			cfg.Rooms.Get(w, r)
		case http.MethodPut:
			cfg.Rooms.Update(w, r)
		case http.MethodDelete:
			cfg.Rooms.Delete(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
		}

	case segments[1] == "members" && len(segments) == 2:
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		cfg.Rooms.AddMember(w, r)

	case segments[1] == "members" && len(segments) == 3:
		r = r.WithContext(ContextWithMemberEmail(r.Context(), segments[2]))
		switch r.Method {
		case http.MethodPut:
			cfg.Rooms.SetMemberRole(w, r)
		case http.MethodDelete:
			cfg.Rooms.RemoveMember(w, r)
		default:
			methodNotAllowed(w, http.MethodPut, http.MethodDelete)
		}

	case segments[1] == "bookings" && len(segments) == 2:
		if cfg.Bookings == nil {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			cfg.Bookings.List(w, r)
		case http.MethodPost:
			cfg.Bookings.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}

	case segments[1] == "bookings" && len(segments) == 3 && segments[2] == "watch":
		if cfg.Watch == nil {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		cfg.Watch.Watch(w, r)

	case segments[1] == "bookings" && len(segments) == 3:
		if cfg.Bookings == nil {
			http.NotFound(w, r)
			return
		}
		r = r.WithContext(ContextWithBookingID(r.Context(), segments[2]))
		switch r.Method {
		case http.MethodPut:
			cfg.Bookings.Update(w, r)
		case http.MethodDelete:
			cfg.Bookings.Delete(w, r)
		default:
			methodNotAllowed(w, http.MethodPut, http.MethodDelete)
		}

	default:
		http.NotFound(w, r)
	}
}

// splitPath splits and unescapes path segments, dropping a trailing slash.
func splitPath(path string) []string {
	raw := strings.Split(strings.TrimSuffix(path, "/"), "/")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		unescaped, err := url.PathUnescape(segment)
		if err != nil {
			unescaped = segment
		}
		segments = append(segments, unescaped)
	}
	return segments
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
