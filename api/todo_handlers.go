package main

import (
	"errors"
	"net/http"
)

type createTaskRequest struct {
	Content string  `json:"content"`
	DueDate *string `json:"dueDate"`
	Status  *string `json:"status"`
}

func (req createTaskRequest) validate() (createTaskInput, error) {
	v := newValidator()
	in := createTaskInput{Content: req.Content}
	v.checkContent(req.Content)
	if req.DueDate != nil && *req.DueDate != "" {
		in.DueDate = v.checkDate("dueDate", *req.DueDate)
	}
	if req.Status != nil {
		in.Status = taskStatus(*req.Status)
		v.checkStatus(in.Status)
	}
	if err := v.toError(); err != nil {
		return createTaskInput{}, err
	}
	return in, nil
}

type updateTaskRequest struct {
	Content *string `json:"content"`
	DueDate *string `json:"dueDate"`
	Status  *string `json:"status"`
}

func (req updateTaskRequest) validate() (updateTaskInput, error) {
	v := newValidator()
	var in updateTaskInput
	if req.Content != nil {
		v.checkContent(*req.Content)
		in.Content = req.Content
	}
	if req.DueDate != nil && *req.DueDate != "" {
		in.DueDate = v.checkDate("dueDate", *req.DueDate)
	}
	if req.Status != nil {
		status := taskStatus(*req.Status)
		v.checkStatus(status)
		in.Status = &status
	}
	if err := v.toError(); err != nil {
		return updateTaskInput{}, err
	}
	return in, nil
}

func (app *application) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := app.tasks.listAll(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "todos": tasks})
}

func (app *application) listUserTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := app.tasks.listMine(r.Context(), getIdentityFromRequest(r))
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "todos": tasks})
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	in, err := req.validate()
	if err != nil {
		writeValidationError(w, err.(*validationError))
		return
	}
	t, err := app.tasks.create(r.Context(), getIdentityFromRequest(r), in)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	in, err := req.validate()
	if err != nil {
		writeValidationError(w, err.(*validationError))
		return
	}
	t, err := app.tasks.update(r.Context(), getIdentityFromRequest(r), r.PathValue("id"), in)
	if err != nil {
		taskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	err := app.tasks.delete(r.Context(), getIdentityFromRequest(r), r.PathValue("id"))
	if err != nil {
		taskError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func taskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errTaskNotFound):
		writeError(w, http.StatusNotFound, "Todo not found.")
	default:
		serverError(w, r, err)
	}
}
