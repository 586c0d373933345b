package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Oleksandr1212/test-day-second/internal/application"
)

var (
	errBadRequestBody      = errors.New("Невірний формат запиту.")
	errInvalidRoomID       = errors.New("Невірний ідентифікатор кімнати.")
	errInvalidBookingID    = errors.New("Невірний ідентифікатор бронювання.")
	errInvalidMemberEmail  = errors.New("Невірна електронна пошта учасника.")
	errMissingSessionToken = errors.New("Потрібна автентифікація. Увійдіть, щоб продовжити.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application layer errors into HTTP status
// codes with localized messages.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrForbidden):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "У вас немає прав для виконання цієї дії.",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "Невірна електронна пошта або пароль.",
		})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "Сесія закінчилася. Будь ласка, увійдіть знову.",
		})
	case errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_REVOKED",
			Message:   "Сесію завершено. Будь ласка, увійдіть знову.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "Запитаний ресурс не знайдено."})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "BOOKING_CONFLICT",
			Message:   "Цей час уже зайнятий. Будь ласка, оберіть інший проміжок.",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "Такий запис уже існує."})
	case errors.Is(err, application.ErrInvalidInterval):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "BOOKING_INVALID_INTERVAL",
			Message:   "Час завершення має бути пізніше часу початку.",
		})
	case errors.Is(err, application.ErrInPast):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "BOOKING_IN_PAST",
			Message:   "Неможливо створити бронювання в минулому.",
		})
	case errors.Is(err, application.ErrStoreUnavailable):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Message: "Сервіс тимчасово недоступний. Спробуйте пізніше."})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "Перевірте правильність введених даних.",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Внутрішня помилка сервера."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Невірний формат запиту."
	case http.StatusUnauthorized:
		return "Потрібна автентифікація."
	case http.StatusForbidden:
		return "У вас немає прав для виконання цієї дії."
	case http.StatusNotFound:
		return "Запитаний ресурс не знайдено."
	case http.StatusConflict:
		return "Запит конфліктує з поточним станом ресурсу."
	case http.StatusUnprocessableEntity:
		return "Перевірте правильність введених даних."
	default:
		return "Внутрішня помилка сервера."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "email is required":
		return "Електронна пошта є обов'язковою."
	case "email is invalid":
		return "Невірний формат електронної пошти."
	case "name is required":
		return "Назва кімнати є обов'язковою."
	case "title is required":
		return "Назва бронювання є обов'язковою."
	case "start is required":
		return "Час початку є обов'язковим."
	case "end is required":
		return "Час завершення є обов'язковим."
	case "role must be Admin or User":
		return "Роль має бути Admin або User."
	default:
		if strings.HasPrefix(message, "password must be at least") {
			return "Пароль має містити щонайменше 8 символів."
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
