package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound      = errors.New("short link not found")
	ErrAlreadyTaken  = errors.New("back-half already taken")
	ErrRequiredField = errors.New("required field missing")
	ErrInvalidField  = errors.New("field rejected as invalid")
	ErrNetwork       = errors.New("network failure")
)

// ServerError любой прочий не-2xx ответ бэкенда с сообщением
type ServerError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server rejected request (%d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
}

// errorBody тело ошибки бэкенда. Поле code структурировано, но
// исторически бэкенд отдаёт только message/error свободным текстом.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ClassifyAPIError переводит не-2xx ответ бэкенда в доменную ошибку.
// Единственное место, где живёт сопоставление: сначала структурированный
// code, затем HTTP-статус, и только потом подстроки в тексте сообщения.
func ClassifyAPIError(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}

	if err := classifyCode(eb.Code); err != nil {
		return err
	}

	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrAlreadyTaken
	}

	if err := classifyMessage(msg); err != nil {
		return err
	}

	if msg == "" {
		msg = http.StatusText(status)
	}
	return &ServerError{Status: status, Code: eb.Code, Message: msg}
}

func classifyCode(code string) error {
	switch strings.ToLower(code) {
	case "already_taken", "taken", "conflict":
		return ErrAlreadyTaken
	case "required", "missing_field":
		return ErrRequiredField
	case "invalid", "invalid_url", "validation_failed":
		return ErrInvalidField
	case "not_found":
		return ErrNotFound
	}
	return nil
}

// classifyMessage запасной вариант: сопоставление по подстрокам.
// Ломается при смене формулировок бэкенда, поэтому изолировано здесь
// и покрыто тестами отдельно.
func classifyMessage(msg string) error {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "already taken"), strings.Contains(m, "exists"):
		return ErrAlreadyTaken
	case strings.Contains(m, "required"):
		return ErrRequiredField
	case strings.Contains(m, "invalid"):
		return ErrInvalidField
	case strings.Contains(m, "not found"):
		return ErrNotFound
	}
	return nil
}
