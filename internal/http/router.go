package http

import (
	"net/http"
	"strconv"
	"strings"
)

const healthPath = "/healthz"

type RouterConfig struct {
	Schedules     *ScheduleHandler
	Houses        *HouseHandler
	Session       *SessionHandler
	Preferences   *PreferencesHandler
	Notifications *NotificationHandler
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.Schedules != nil {
		mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Schedules.List(w, r)
			case http.MethodPost:
				cfg.Schedules.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/schedules/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath(r.URL.Path, "/schedules/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithScheduleID(r.Context(), id))
			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Schedules.Get(w, r)
				case http.MethodPut:
					cfg.Schedules.UpdateDateTime(w, r)
				case http.MethodDelete:
					cfg.Schedules.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "enabled":
				if r.Method != http.MethodPut {
					methodNotAllowed(w, http.MethodPut)
					return
				}
				cfg.Schedules.SetEnabled(w, r)
			case "run":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Schedules.Run(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Houses != nil {
		mux.HandleFunc("/houses", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Houses.List(w, r)
		})
		mux.HandleFunc("/houses/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitResourcePath(r.URL.Path, "/houses/")
			if !ok || action != "devices" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Houses.Devices(w, r.WithContext(ContextWithHouseID(r.Context(), id)))
		})
	}

	if cfg.Session != nil {
		mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Session.Get(w, r)
			case http.MethodPost:
				cfg.Session.Create(w, r)
			case http.MethodDelete:
				cfg.Session.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
			}
		})
	}

	if cfg.Preferences != nil {
		mux.HandleFunc("/preferences", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Preferences.Get(w, r)
			case http.MethodPut:
				cfg.Preferences.Update(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		})
	}

	if cfg.Notifications != nil {
		mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Notifications.List(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// splitResourcePath parses "<prefix>{id}" or "<prefix>{id}/{action}".
func splitResourcePath(path, prefix string) (int64, string, bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return 0, "", false
	}
	rawID, action, _ := strings.Cut(rest, "/")
	if strings.Contains(action, "/") {
		return 0, "", false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, action, true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
