// internal/domain/homework/errors.go
package homework

import "fmt"

// TransportError means the request never produced a response (connection refused, timeout).
// The cause is kept for logs and errors.Is but left out of the message, so repeated
// outages render the same diagnostic.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Эндпоинт %s недоступен. Ответ от API не получен.", e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EndpointStatusError means the API answered with a non-200 status.
type EndpointStatusError struct {
	URL        string
	StatusCode int
}

func (e *EndpointStatusError) Error() string {
	return fmt.Sprintf("Эндпоинт %s недоступен. Код ответа API: %d.", e.URL, e.StatusCode)
}

// DecodeError means the API answered 200 with a body that is not JSON.
type DecodeError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("Эндпоинт %s не выдает JSON. Код ответа API: %d.", e.URL, e.StatusCode)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StructuralError means the decoded response does not have the expected shape.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string { return e.Reason }

// MissingFieldError means a homework record lacks a required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("В полученных с сервера данных отсутствует ключ %s.", e.Field)
}

// UnknownStatusError means the record's status is not in the verdict table.
type UnknownStatusError struct {
	Status string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("Статус %s отсутствует в словаре вердиктов.", e.Status)
}

// DeliveryError means a chat message could not be sent.
type DeliveryError struct {
	Message string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("Сбой при отправке сообщения: %s.", e.Message)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// MissingCredentialError is returned by config loading when a required variable is unset.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("Отсутствует обязательная переменная окружения %s. Программа принудительно остановлена.", e.Name)
}
