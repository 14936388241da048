package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/opportunities/internal/domain"
	"github.com/MrSnakeDoc/opportunities/internal/httpserver/deps"
	"github.com/MrSnakeDoc/opportunities/internal/logger"
)

const maxUserIDLen = 128

// userID reads and validates the {userID} path parameter, answering 400
// itself when it is unusable.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "userID"))
	if id == "" || len(id) > maxUserIDLen || strings.ContainsAny(id, " :") {
		writeMessage(w, http.StatusBadRequest, "invalid user id")
		return "", false
	}
	return id, true
}

// Recommendations runs a query and re-ranks it by the user's preferences.
func Recommendations(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		res, err := d.Catalog.Recommend(r.Context(), user, searchParams(r))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// Preferences returns the user's stored preferences.
func Preferences(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		pref, err := d.Catalog.Preferences(r.Context(), user)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if pref.Disciplines == nil {
			pref.Disciplines = []string{}
		}
		writeJSON(w, http.StatusOK, pref)
	}
}

type preferencesRequest struct {
	Disciplines []string `json:"disciplines"`
	Email       string   `json:"email"`
}

// SetPreferences replaces the user's preferences.
func SetPreferences(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		var req preferencesRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		pref, err := d.Catalog.SetPreferences(r.Context(), domain.UserPreference{
			UserID:      user,
			Disciplines: req.Disciplines,
			Email:       strings.TrimSpace(req.Email),
		})
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		d.Logger.Info("preferences updated",
			logger.String("user_id", user),
			logger.Strings("disciplines", pref.Disciplines))
		writeJSON(w, http.StatusOK, pref)
	}
}

// Saved lists the user's saved opportunities.
func Saved(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		list, err := d.Catalog.Saved(r.Context(), user)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type saveRequest struct {
	IDs []string `json:"ids"`
}

type saveResponse struct {
	Added int `json:"added"`
}

// Save adds opportunities to the user's saved list. Already saved IDs are
// skipped.
func Save(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		var req saveRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		added, err := d.Catalog.Save(r.Context(), user, req.IDs)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, saveResponse{Added: added})
	}
}

// Unsave removes one opportunity from the user's saved list.
func Unsave(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		removed, err := d.Catalog.Unsave(r.Context(), user, chi.URLParam(r, "oppID"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if !removed {
			writeMessage(w, http.StatusNotFound, "not saved")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Similar returns opportunities sharing keywords with the saved ones.
func Similar(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := userID(w, r)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		hits, err := d.Catalog.Similar(r.Context(), user, limit)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": hits})
	}
}
