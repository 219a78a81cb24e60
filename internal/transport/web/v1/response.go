package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/EgorLis/retail-pos/internal/domain"
	"github.com/EgorLis/retail-pos/internal/transport/web/mw"
	"github.com/go-playground/validator/v10"
)

// MapDomainError решает HTTP-статус и текст ошибки для конверта
func MapDomainError(err error) (httpStatus int, env domain.APIEnvelope) {
	switch {
	case errors.Is(err, domain.ErrBadParams):
		return http.StatusBadRequest, domain.Fail(err.Error())
	case errors.Is(err, domain.ErrUnauth):
		return http.StatusUnauthorized, domain.Fail(err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.Fail(err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.Fail(err.Error())
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, domain.Fail(err.Error())
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented, domain.Fail(err.Error())
	default:
		// внутренности наружу не отдаём
		return http.StatusInternalServerError, domain.Fail(domain.ErrUnexpected.Error())
	}
}

// WriteEnvelope пишет конверт; для HEAD — без тела
func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, env domain.APIEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(mw.HeaderRequestID, mw.RequestIDFromCtx(r.Context()))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(env)
}

// Шорткаты успеха
func WriteOKData(w http.ResponseWriter, r *http.Request, data any) {
	WriteEnvelope(w, r, http.StatusOK, domain.OkData(data))
}
func WriteOKMessage(w http.ResponseWriter, r *http.Request, msg string, data any) {
	WriteEnvelope(w, r, http.StatusOK, domain.OkMessage(msg, data))
}
func WriteCreated(w http.ResponseWriter, r *http.Request, msg string, data any) {
	WriteEnvelope(w, r, http.StatusCreated, domain.OkMessage(msg, data))
}

func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := MapDomainError(err)
	WriteEnvelope(w, r, status, env)
}

var validate = newValidator()

// в ошибках валидации — имена полей из json-тегов
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON читает тело и проверяет теги validate. Любая ошибка — ErrBadParams.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", domain.ErrBadParams, err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: missing or invalid fields: %s", domain.ErrBadParams, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", domain.ErrBadParams, err)
	}
	return nil
}

// PathIndex — целочисленный параметр пути ({index}).
func PathIndex(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrBadParams, name, raw)
	}
	return i, nil
}

func ActorFrom(r *http.Request) domain.Actor {
	a, _ := domain.ActorFromCtx(r.Context())
	return a
}
