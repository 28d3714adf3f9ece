package response

import "github.com/gofiber/fiber/v3"

// HeaderRequestID carries the per-request id set by the access log
// middleware. The envelope echoes it so clients can quote it.
const HeaderRequestID = "X-Request-ID"

type SemanticResponse struct {
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

const (
	MessageOK                  = "ok"
	MessageBadRequest          = "bad request"
	MessageUnauthorized        = "unauthorized"
	MessageForbidden           = "forbidden"
	MessageNotFound            = "not found"
	MessageConflict            = "conflict"
	MessageUnprocessableEntity = "unprocessable entity"
	MessageServiceUnavailable  = "service unavailable"
	MessageInternalServerError = "internal server error"
	MessageError               = "error"
)

var defaultMessages = map[int]string{
	fiber.StatusOK:                  MessageOK,
	fiber.StatusAccepted:            MessageOK,
	fiber.StatusBadRequest:          MessageBadRequest,
	fiber.StatusUnauthorized:        MessageUnauthorized,
	fiber.StatusForbidden:           MessageForbidden,
	fiber.StatusNotFound:            MessageNotFound,
	fiber.StatusConflict:            MessageConflict,
	fiber.StatusUnprocessableEntity: MessageUnprocessableEntity,
	fiber.StatusServiceUnavailable:  MessageServiceUnavailable,
}

func Success(c fiber.Ctx, status int, message string, data interface{}) error {
	return write(c, status, message, data)
}

func Error(c fiber.Ctx, status int, message string, data interface{}) error {
	return write(c, status, message, data)
}

func write(c fiber.Ctx, status int, message string, data interface{}) error {
	st := normalizeStatus(status)
	if message == "" {
		message = DefaultMessage(st)
	}
	return c.Status(st).JSON(SemanticResponse{
		Status:    st,
		Message:   message,
		Data:      data,
		RequestID: c.GetRespHeader(HeaderRequestID),
	})
}

func normalizeStatus(status int) int {
	if status < 100 || status > 599 {
		return fiber.StatusInternalServerError
	}
	return status
}

// DefaultMessage is the envelope message used when a handler gives none.
func DefaultMessage(status int) string {
	if msg, ok := defaultMessages[status]; ok {
		return msg
	}
	if status >= 500 {
		return MessageInternalServerError
	}
	if status < 300 {
		return MessageOK
	}
	return MessageError
}
