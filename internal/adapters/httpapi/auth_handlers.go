package httpapi

import (
	"net/http"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
	"github.com/atvirokodosprendimai/storefront/internal/core/usecase"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decodeBody(w, r, usecase.PayloadSignup, &req) {
		return
	}

	user, err := h.auth.Signup(r.Context(), usecase.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     domain.Role(req.Role),
	}, mutationMeta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeOK(w, http.StatusCreated, "Account created. Check your email for the verification token.", map[string]any{
		"user": toUserResponse(user),
	})
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !h.decodeBody(w, r, usecase.PayloadVerifyEmail, &req) {
		return
	}

	user, err := h.auth.VerifyEmail(r.Context(), req.Token, mutationMeta(r))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "Email verified", map[string]any{"user": toUserResponse(user)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeBody(w, r, usecase.PayloadLogin, &req) {
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "Logged in", map[string]any{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), bearerToken(r)); err != nil {
		handleDomainError(w, err)
		return
	}
	writeOK(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "", map[string]any{
		"user": toUserResponse(principalFromContext(r.Context()).User),
	})
}
