package remote

import (
	"fmt"
)

// NetworkError означает, что пригодный ответ от сервиса не получен:
// сбой транспорта, статус вне 2xx или тело, которое не удалось разобрать.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteRejection означает, что сервис ответил, но с признаком success=false.
type RemoteRejection struct {
	Op      string
	Message string
}

func (e *RemoteRejection) Error() string {
	if e.Message == "" {
		return e.Op + ": rejected by remote"
	}
	return e.Op + ": rejected by remote: " + e.Message
}
