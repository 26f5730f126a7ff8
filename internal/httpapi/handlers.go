package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"dayplan/internal/model"
	"dayplan/internal/recurrence"
	"dayplan/internal/service"
)

const maxBodyBytes = 1 << 20

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}

	start, err := recurrence.ParseDate(r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, err := recurrence.ParseDate(r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}
	if err := recurrence.CheckWindow(start, end); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := s.tasks.ListRange(r.Context(), user, start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	var input service.TaskInput
	if !decode(w, r, &input) {
		return
	}
	task, err := s.tasks.CreateTask(r.Context(), user, input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	task, err := s.tasks.GetTask(r.Context(), user, mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	var input service.TaskInput
	if !decode(w, r, &input) {
		return
	}
	task, err := s.tasks.UpdateTask(r.Context(), user, mux.Vars(r)["id"], input)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	if err := s.tasks.DeleteTask(r.Context(), user, mux.Vars(r)["id"]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	categories, err := s.categories.List(r.Context(), user)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	var settings model.NotificationSettings
	if !decode(w, r, &settings) {
		return
	}
	updated, err := s.users.UpdateNotificationSettings(r.Context(), user, settings)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request format")
		return false
	}
	return true
}
