package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kizuna-social/backend/pkg/errorx"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

type response struct {
	Code  int64  `json:"code"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func newResponse(data any) response {
	return response{
		Code: 0,
		Data: data,
	}
}

func newErrorResponse(err error) (int, response) {
	errx := errorx.Error{}
	if errors.As(err, &errx) {
		return errx.Code.HTTPStatus(), response{
			Code:  int64(errx.Code),
			Error: errx.Message,
		}
	}

	return http.StatusInternalServerError, response{
		Code:  int64(errorx.Unknown.Code),
		Error: errorx.Unknown.Message,
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, resp := newErrorResponse(err)
	if err := WriteJSON(w, status, resp); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
	}
}

func WriteJSON(w http.ResponseWriter, status int, resp any) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		return err
	}

	return nil
}
