// Package auth serves email + password registration, login and email
// verification, returning bearer tokens.
package auth

import (
	"context"
	"errors"
	"net/http"

	lib "github.com/dalemusser/bayit/internal/app/library"
	"github.com/dalemusser/bayit/internal/app/store/emailverify"
	userstore "github.com/dalemusser/bayit/internal/app/store/users"
	"github.com/dalemusser/bayit/internal/app/system/apiresp"
	sysauth "github.com/dalemusser/bayit/internal/app/system/auth"
	"github.com/dalemusser/bayit/internal/app/system/mailer"
	"github.com/dalemusser/bayit/internal/app/system/normalize"
	"github.com/dalemusser/bayit/internal/app/system/ratelimit"
	"github.com/dalemusser/bayit/internal/app/system/timeouts"
	"github.com/dalemusser/bayit/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost for account passwords.
const PasswordCost = bcrypt.DefaultCost

type Handler struct {
	Users       *userstore.Store
	EmailVerify *emailverify.Store
	Library     *lib.Service
	Tokens      *sysauth.Tokens
	Mailer      mailer.Sender
	Limiter     *ratelimit.Limiter
	SiteName    string
	Log         *zap.Logger
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
	User      lib.UserView `json:"user"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), PasswordCost)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	hashed := string(hash)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FullName:     req.Name,
		Email:        req.Email,
		PasswordHash: &hashed,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			apiresp.Error(w, r, http.StatusConflict, "duplicate_email", err.Error())
			return
		}
		h.Log.Error("create user", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	h.sendVerification(r.Context(), &u)
	h.writeToken(w, r, http.StatusCreated, &u)
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}
	if h.Limiter != nil && !h.Limiter.AllowEmail(req.Email) {
		apiresp.Error(w, r, http.StatusTooManyRequests, apiresp.KindRateLimited,
			"too many login attempts for this account, please wait a few minutes")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		h.Log.Error("lookup user for login", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	if u == nil || !u.HasPassword() ||
		bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(req.Password)) != nil {
		apiresp.Unauthorized(w, r, "invalid email or password")
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}
	h.writeToken(w, r, http.StatusOK, u)
}

// HandleVerify handles POST /api/auth/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.EmailVerify.Verify(ctx, req.Email, req.Code)
	switch {
	case err == nil:
	case errors.Is(err, emailverify.ErrInvalidCode):
		apiresp.Error(w, r, http.StatusBadRequest, "invalid_code", err.Error())
		return
	case errors.Is(err, emailverify.ErrNotFound):
		apiresp.Error(w, r, http.StatusBadRequest, "code_expired", "verification code expired or not requested")
		return
	case errors.Is(err, emailverify.ErrTooManyAttempts):
		apiresp.Error(w, r, http.StatusTooManyRequests, apiresp.KindRateLimited, "too many attempts, request a new code")
		return
	case errors.Is(err, emailverify.ErrAlreadyVerified):
		apiresp.Error(w, r, http.StatusConflict, "already_verified", err.Error())
		return
	default:
		h.Log.Error("verify email", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}

	h.Log.Info("email verified", zap.String("user_id", u.ID.Hex()))
	v, err := h.Library.View(ctx, u.ID)
	if err != nil {
		h.Log.Error("load user view after verify", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	apiresp.JSON(w, r, http.StatusOK, v)
}

// HandleResend handles POST /api/auth/verify/resend. It always answers 202
// so the endpoint cannot be used to probe which emails have accounts.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !apiresp.DecodeAndValidate(w, r, &req) {
		return
	}
	accepted := func() {
		apiresp.JSON(w, r, http.StatusAccepted, map[string]string{"status": "ok"})
	}
	if h.Limiter != nil && !h.Limiter.AllowEmail("resend:"+req.Email) {
		accepted()
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			h.Log.Error("lookup user for resend", zap.Error(err))
		}
		accepted()
		return
	}
	if !u.IsVerified {
		h.sendVerification(r.Context(), u)
	}
	accepted()
}

// sendVerification issues a code and mails it. Failures are logged only;
// the user can ask for another code.
func (h *Handler) sendVerification(parent context.Context, u *models.User) {
	ctx, cancel := timeouts.WithTimeout(parent, timeouts.Long(), h.Log, "send verification email")
	defer cancel()

	code, err := h.EmailVerify.Issue(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, emailverify.ErrAlreadyVerified) {
			h.Log.Error("issue verification code", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		}
		return
	}
	msg := mailer.BuildVerificationEmail(normalize.Email(u.Email), mailer.VerificationEmailData{
		SiteName:  h.SiteName,
		Name:      u.FullName,
		Code:      code,
		ExpiresIn: mailer.ExpiresIn(h.EmailVerify.Expiry()),
	})
	if err := h.Mailer.Send(ctx, msg); err != nil {
		h.Log.Error("send verification email", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
}

func (h *Handler) writeToken(w http.ResponseWriter, r *http.Request, status int, u *models.User) {
	token, err := h.Tokens.Issue(u.ID)
	if err != nil {
		h.Log.Error("issue token", zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	v, err := h.Library.View(ctx, u.ID)
	if err != nil {
		h.Log.Error("load user view", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		apiresp.Internal(w, r)
		return
	}
	apiresp.JSON(w, r, status, tokenResponse{
		Token:     token,
		ExpiresIn: int64(h.Tokens.TTL().Seconds()),
		User:      v,
	})
}
