// internal/app/homework_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homework_status_bot/internal/domain/homework"
	"homework_status_bot/internal/domain/pollstate"
	domainTelegram "homework_status_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// HomeworkService runs poll cycles: fetch status changes, notify the chat, and report
// failures to the same chat without repeating the previous diagnostic.
// It is not safe for concurrent use; the scheduler calls RunCycle sequentially.
type HomeworkService struct {
	source         homework.Source
	formatter      *homework.Formatter
	telegramClient domainTelegram.Client
	stateRepo      pollstate.Repository
	chatID         int64
	logger         *logrus.Entry
	now            func() time.Time

	cursor         int64
	lastDiagnostic string
}

func NewHomeworkService(
	src homework.Source,
	formatter *homework.Formatter,
	tc domainTelegram.Client,
	stateRepo pollstate.Repository,
	chatID int64,
	logger *logrus.Entry,
) *HomeworkService {
	return &HomeworkService{
		source:         src,
		formatter:      formatter,
		telegramClient: tc,
		stateRepo:      stateRepo,
		chatID:         chatID,
		logger:         logger,
		now:            time.Now,
	}
}

// Restore initialises the cursor and last diagnostic from the state repository.
// Without stored state the cursor starts at the current time.
func (s *HomeworkService) Restore(ctx context.Context) error {
	s.cursor = s.now().Unix()

	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		if errors.Is(err, pollstate.ErrStateNotFound) {
			s.logger.WithField("cursor", s.cursor).Info("No stored poll state, starting from now")
			if err := s.stateRepo.SaveCursor(ctx, s.cursor, time.Time{}); err != nil {
				s.logger.WithError(err).Warn("Failed to persist initial poll cursor")
			}
			return nil
		}
		return fmt.Errorf("failed to load poll state: %w", err)
	}

	if st.Cursor > 0 {
		s.cursor = st.Cursor
	}
	s.lastDiagnostic = st.LastDiagnostic
	s.logger.WithField("cursor", s.cursor).Info("Poll state restored")
	return nil
}

// Cursor returns the from_date used for the next poll.
func (s *HomeworkService) Cursor() int64 { return s.cursor }

// LastDiagnostic returns the most recent error message delivered to the chat.
func (s *HomeworkService) LastDiagnostic() string { return s.lastDiagnostic }

// RunCycle performs one poll. Failures inside the cycle are reported to the chat and
// swallowed; the returned error is non-nil only when that report itself could not be
// delivered, or when ctx was cancelled.
func (s *HomeworkService) RunCycle(ctx context.Context) error {
	err := s.poll(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.report(ctx, err)
}

func (s *HomeworkService) poll(ctx context.Context) error {
	response, err := s.source.GetHomeworkStatuses(ctx, s.cursor)
	if err != nil {
		return err
	}

	records, err := homework.CheckResponse(response)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		s.logger.Debug("В ответе отсутствуют новые статусы.")
	}
	for _, record := range records {
		message, err := s.formatter.ParseStatus(record)
		if err != nil {
			return err
		}
		if err := s.SendMessage(message); err != nil {
			return err
		}
	}

	cursor, err := homework.CurrentDate(response)
	if err != nil {
		return err
	}
	s.cursor = cursor
	if err := s.stateRepo.SaveCursor(ctx, cursor, s.now()); err != nil {
		s.logger.WithError(err).Warn("Failed to persist poll cursor")
	}
	return nil
}

// SendMessage delivers one message to the configured chat.
func (s *HomeworkService) SendMessage(message string) error {
	if err := s.telegramClient.SendMessage(s.chatID, message); err != nil {
		s.logger.WithError(err).WithField("chat_id", s.chatID).Errorf("Сбой при отправке сообщения: %s", message)
		return &homework.DeliveryError{Message: message, Err: err}
	}
	s.logger.WithField("chat_id", s.chatID).Infof("Бот отправил сообщение: %s", message)
	return nil
}

func (s *HomeworkService) report(ctx context.Context, cycleErr error) error {
	s.logger.WithError(cycleErr).WithField("error_kind", errorKind(cycleErr)).Error("Poll cycle failed")

	diagnostic := fmt.Sprintf("Сбой в работе программы: %v", cycleErr)
	if diagnostic == s.lastDiagnostic {
		s.logger.Debug("Diagnostic unchanged since last report, not resending")
		return nil
	}

	if err := s.SendMessage(diagnostic); err != nil {
		return err
	}
	s.lastDiagnostic = diagnostic
	if err := s.stateRepo.SaveDiagnostic(ctx, diagnostic); err != nil {
		s.logger.WithError(err).Warn("Failed to persist last diagnostic")
	}
	return nil
}

func errorKind(err error) string {
	var (
		transportErr *homework.TransportError
		statusErr    *homework.EndpointStatusError
		decodeErr    *homework.DecodeError
		shapeErr     *homework.StructuralError
		fieldErr     *homework.MissingFieldError
		unknownErr   *homework.UnknownStatusError
		deliveryErr  *homework.DeliveryError
	)
	switch {
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &statusErr):
		return "endpoint_status"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &shapeErr):
		return "structure"
	case errors.As(err, &fieldErr):
		return "missing_field"
	case errors.As(err, &unknownErr):
		return "unknown_status"
	case errors.As(err, &deliveryErr):
		return "delivery"
	default:
		return "other"
	}
}
