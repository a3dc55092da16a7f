package main

import (
	"errors"
	"log"
	"net/http"
)

const authCookieName = "auth_token"

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

func (req registerRequest) validate() (registerInput, error) {
	v := newValidator()
	v.checkEmail(req.Email)
	v.checkPassword(req.Password)
	v.checkCond(req.FullName != "", "fullName", "must be provided")
	v.checkCond(len(req.FullName) <= 255, "fullName", "must be atmost 255 characters")
	if err := v.toError(); err != nil {
		return registerInput{}, err
	}
	return registerInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validate only checks presence so that format rules cannot hint at which
// accounts exist.
func (req loginRequest) validate() error {
	v := newValidator()
	v.checkCond(req.Email != "", "email", "must be provided")
	v.checkCond(req.Password != "", "password", "must be provided")
	return v.toError()
}

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := app.auth.listUsers(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	data := make([]publicUser, 0, len(users))
	for i := range users {
		data = append(data, users[i].public())
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "data": data})
}

func (app *application) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	in, err := req.validate()
	if err != nil {
		writeValidationError(w, err.(*validationError))
		return
	}
	u, err := app.auth.register(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, errDuplicateEmail):
			writeError(w, http.StatusConflict, "Email already exists.")
		default:
			serverError(w, r, err)
		}
		return
	}
	if app.mailer != nil {
		app.background(func() {
			err := app.mailer.send(u.Email, welcomeTemplate, u.public())
			if err != nil {
				log.Printf("send welcome mail to user %s: %v", u.ID, err)
			}
		})
	}
	writeJSON(w, http.StatusCreated, envelope{"success": true, "message": "User created successfully."})
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeValidationError(w, err.(*validationError))
		return
	}
	token, u, err := app.auth.login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, errInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid credentials.")
		default:
			serverError(w, r, err)
		}
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(app.config.jwt.expiry.Seconds()),
		HttpOnly: true,
		Secure:   app.config.env == "production",
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Sign-in successful.",
		"token":   token,
		"user":    u.public(),
	})
}

func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   app.config.env == "production",
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Signed out."})
}
