package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/reliefworks/formsync/app"
	"github.com/reliefworks/formsync/httpx"
	"github.com/reliefworks/formsync/log"
	"github.com/reliefworks/formsync/model"
)

// The full nested definition (sections, questions, option-owned conditional
// questions) is stored as one JSON document so it round-trips exactly as the
// client wrote it. Status, version and response count live in their own
// columns and win over the blob on read.

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if form.ID == "" {
			id, err := uuid.NewV4()
			if err != nil {
				httpx.LogInternalError(w, "request.new_id", err)
				return
			}
			form.ID = id.String()
		}
		if form.Status == "" {
			form.Status = model.StatusDraft
		}
		if form.Version == 0 {
			form.Version = 1
		}

		if form.Title == "" || form.ProjectID == "" {
			httpx.LogUnprocessable(w, "form.validate", "title and projectId are required")
			return
		}
		if err := form.CheckConditionalOwnership(); err != nil {
			httpx.LogUnprocessable(w, "form.validate.ownership", "%s", err)
			return
		}

		definition, err := json.Marshal(form)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.definition", err)
			return
		}

		// a retried create from a stale wizard session must not duplicate the
		// record: same id updates in place
		_, err = app.ExecContext(r.Context(), `
			INSERT INTO form (id, project_id, title, status, version, definition)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				project_id = excluded.project_id,
				title = excluded.title,
				status = excluded.status,
				definition = excluded.definition,
				updated_at = CURRENT_TIMESTAMP`,
			form.ID, form.ProjectID, form.Title, form.Status, form.Version, string(definition),
		)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		saved, err := loadForm(r.Context(), app, form.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form.reload", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, saved)
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT f.definition, f.status, f.version, f.response_count
			FROM form f`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}
		defer rows.Close()

		forms := []model.Form{}
		for rows.Next() {
			form, err := scanForm(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_forms.scan", err)
				return
			}
			forms = append(forms, form)
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := loadForm(r.Context(), app, formId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		form.ID = formId

		if err := form.CheckConditionalOwnership(); err != nil {
			httpx.LogUnprocessable(w, "form.validate.ownership", "%s", err)
			return
		}

		definition, err := json.Marshal(form)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.definition", err)
			return
		}

		// last writer wins at the record level; the version column only
		// counts revisions
		res, err := app.ExecContext(r.Context(), `
			UPDATE form
			SET
				project_id = ?,
				title = ?,
				definition = ?,
				version = version + 1,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			form.ProjectID,
			form.Title,
			string(definition),
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "update_form", formId)
			return
		}

		saved, err := loadForm(r.Context(), app, formId)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.reload", err)
			return
		}
		render.JSON(w, r, saved)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM form_response
			WHERE form_id = ?`,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.responses", err)
			return
		}

		res, err := tx.ExecContext(r.Context(), `
			DELETE FROM form WHERE id = ?`,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_form", formId)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func TransitionFormStatus(app app.App) http.HandlerFunc {
	type statusBody struct {
		Status model.FormStatus `json:"status"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		body := statusBody{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := loadForm(r.Context(), app, formId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "transition_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		if !form.Status.CanTransition(body.Status) {
			httpx.LogConflict(w, "form.transition", "cannot transition from %s to %s", form.Status, body.Status)
			return
		}

		form.Status = body.Status
		definition, err := json.Marshal(form)
		if err != nil {
			httpx.LogInternalError(w, "db.transition_form.definition", err)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			UPDATE form
			SET status = ?, definition = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			form.Status, string(definition), formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.transition_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func GetFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		var exists bool
		err := app.QueryRowContext(r.Context(),
			"SELECT 1 FROM form WHERE id = ?", formId,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_responses", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses.form", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, form_id, form_version, data, is_complete, started_at, submitted_at
			FROM form_response
			WHERE form_id = ?
			ORDER BY started_at`,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}
		defer rows.Close()

		responses := []model.FormResponse{}
		for rows.Next() {
			resp := model.FormResponse{}
			var data string
			var submittedAt sql.NullTime
			err = rows.Scan(
				&resp.ID, &resp.FormID, &resp.FormVersion,
				&data, &resp.IsComplete, &resp.StartedAt, &submittedAt,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.get_responses.scan", err)
				return
			}

			err = json.Unmarshal([]byte(data), &resp.Data)
			if err != nil {
				httpx.LogInternalError(w, "db.get_responses.parse_data", err)
				return
			}
			if submittedAt.Valid {
				t := submittedAt.Time
				resp.SubmittedAt = &t
			}

			responses = append(responses, resp)
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (model.Form, error) {
	var definition string
	var status model.FormStatus
	var version, responseCount int

	err := row.Scan(&definition, &status, &version, &responseCount)
	if err != nil {
		return model.Form{}, err
	}

	form := model.Form{}
	err = json.Unmarshal([]byte(definition), &form)
	if err != nil {
		return model.Form{}, err
	}

	// columns are canonical for the mutable metadata
	form.Status = status
	form.Version = version
	form.ResponseCount = responseCount
	return form, nil
}

func loadForm(ctx context.Context, app app.App, formId string) (model.Form, error) {
	row := app.QueryRowContext(ctx, `
		SELECT f.definition, f.status, f.version, f.response_count
		FROM form f
		WHERE f.id = ?`,
		formId,
	)
	return scanForm(row)
}
