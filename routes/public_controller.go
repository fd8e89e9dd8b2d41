package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/reliefworks/formsync/app"
	"github.com/reliefworks/formsync/httpx"
	"github.com/reliefworks/formsync/log"
	"github.com/reliefworks/formsync/model"
)

// PublicGetForm serves a form definition to respondents. Only published
// forms are visible here; anything else is a 404, not a 403, so the route
// leaks nothing about drafts.
func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := loadForm(r.Context(), app, formId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "public.get_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		if form.Status != model.StatusPublished {
			httpx.LogNotFound(w, "public.get_form.unpublished", formId)
			return
		}

		render.JSON(w, r, form)
	}
}

// SubmitResponse records a new response. The form's current version is
// captured into the response and never changes afterwards, whatever happens
// to the form.
func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		resp := model.FormResponse{}
		err := render.DecodeJSON(r.Body, &resp)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := loadForm(r.Context(), app, formId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "public.submit", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}
		if form.Status != model.StatusPublished {
			httpx.LogConflict(w, "public.submit.status", "form is %s", form.Status)
			return
		}

		if resp.ID == "" {
			id, err := uuid.NewV4()
			if err != nil {
				httpx.LogInternalError(w, "request.new_id", err)
				return
			}
			resp.ID = id.String()
		}
		resp.FormID = formId
		resp.FormVersion = form.Version
		if resp.StartedAt.IsZero() {
			resp.StartedAt = time.Now()
		}
		if resp.IsComplete && resp.SubmittedAt == nil {
			now := time.Now()
			resp.SubmittedAt = &now
		}

		data, err := json.Marshal(resp.Data)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response.data", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO form_response (id, form_id, form_version, data, is_complete, started_at, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				data = excluded.data,
				is_complete = form_response.is_complete OR excluded.is_complete,
				submitted_at = COALESCE(form_response.submitted_at, excluded.submitted_at)`,
			resp.ID, resp.FormID, resp.FormVersion, string(data),
			resp.IsComplete, resp.StartedAt, resp.SubmittedAt,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response", err)
			return
		}

		_, err = tx.ExecContext(r.Context(), `
			UPDATE form
			SET response_count = (SELECT COUNT(*) FROM form_response WHERE form_id = ?)
			WHERE id = ?`,
			formId, formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response.count", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, resp)
	}
}

// UpdateResponse edits an existing response. A completed response stays
// completed: is_complete never flips back, and the captured form version is
// untouched.
func UpdateResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")
		responseId := chi.URLParam(r, "responseId")

		resp := model.FormResponse{}
		err := render.DecodeJSON(r.Body, &resp)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		data, err := json.Marshal(resp.Data)
		if err != nil {
			httpx.LogInternalError(w, "db.update_response.data", err)
			return
		}

		var submittedAt *time.Time
		if resp.IsComplete {
			now := time.Now()
			submittedAt = &now
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE form_response
			SET
				data = ?,
				is_complete = is_complete OR ?,
				submitted_at = COALESCE(submitted_at, ?)
			WHERE id = ?
				AND form_id = ?`,
			string(data), resp.IsComplete, submittedAt,
			responseId, formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_response", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_response.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "update_response", responseId)
			return
		}

		saved := model.FormResponse{}
		var savedData string
		var savedSubmitted sql.NullTime
		err = app.QueryRowContext(r.Context(), `
			SELECT id, form_id, form_version, data, is_complete, started_at, submitted_at
			FROM form_response
			WHERE id = ?`,
			responseId,
		).Scan(
			&saved.ID, &saved.FormID, &saved.FormVersion,
			&savedData, &saved.IsComplete, &saved.StartedAt, &savedSubmitted,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_response.reload", err)
			return
		}
		err = json.Unmarshal([]byte(savedData), &saved.Data)
		if err != nil {
			httpx.LogInternalError(w, "db.update_response.parse_data", err)
			return
		}
		if savedSubmitted.Valid {
			t := savedSubmitted.Time
			saved.SubmittedAt = &t
		}

		render.JSON(w, r, saved)
	}
}
