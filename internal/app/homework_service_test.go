package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"homework_status_bot/internal/domain/homework"
	"homework_status_bot/internal/domain/pollstate"
	"homework_status_bot/internal/infra/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "https://practicum.example/api/user_api/homework_statuses/"

type sourceResult struct {
	body string
	err  error
}

// fakeSource replays queued results, one per call.
type fakeSource struct {
	t         *testing.T
	results   []sourceResult
	fromDates []int64
}

func (f *fakeSource) GetHomeworkStatuses(_ context.Context, fromDate int64) (any, error) {
	f.fromDates = append(f.fromDates, fromDate)
	require.NotEmpty(f.t, f.results, "unexpected poll")
	res := f.results[0]
	f.results = f.results[1:]
	if res.err != nil {
		return nil, res.err
	}
	dec := json.NewDecoder(strings.NewReader(res.body))
	dec.UseNumber()
	var v any
	require.NoError(f.t, dec.Decode(&v))
	return v, nil
}

type fakeTelegram struct {
	chatIDs  []int64
	messages []string
	fail     func(text string) error
}

func (f *fakeTelegram) SendMessage(chatID int64, text string) error {
	if f.fail != nil {
		if err := f.fail(text); err != nil {
			return err
		}
	}
	f.chatIDs = append(f.chatIDs, chatID)
	f.messages = append(f.messages, text)
	return nil
}

func newTestService(t *testing.T, results ...sourceResult) (*HomeworkService, *fakeSource, *fakeTelegram, *memory.StateRepository) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	src := &fakeSource{t: t, results: results}
	tg := &fakeTelegram{}
	repo := memory.NewStateRepository()
	svc := NewHomeworkService(src, homework.NewFormatter(nil), tg, repo, 4242, logrus.NewEntry(log))
	svc.now = func() time.Time { return time.Unix(1690000000, 0) }
	require.NoError(t, svc.Restore(context.Background()))
	return svc, src, tg, repo
}

func statusErr(code int) sourceResult {
	return sourceResult{err: &homework.EndpointStatusError{URL: testEndpoint, StatusCode: code}}
}

func TestRunCycle_ApprovedHomework(t *testing.T) {
	svc, src, tg, repo := newTestService(t, sourceResult{
		body: `{"homeworks": [{"status": "approved", "homework_name": "diplom"}], "current_date": 1700000000}`,
	})

	require.NoError(t, svc.RunCycle(context.Background()))

	assert.Equal(t, []int64{1690000000}, src.fromDates)
	assert.Equal(t, []string{`Изменился статус проверки работы "diplom". Работа проверена: ревьюеру всё понравилось. Ура!`}, tg.messages)
	assert.Equal(t, []int64{4242}, tg.chatIDs)
	assert.Equal(t, int64(1700000000), svc.Cursor())

	st, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), st.Cursor)
	assert.False(t, st.LastSuccessAt.IsZero())
}

func TestRunCycle_CursorCarriedToNextPoll(t *testing.T) {
	svc, src, _, _ := newTestService(t,
		sourceResult{body: `{"homeworks": [], "current_date": 1700000000}`},
		sourceResult{body: `{"homeworks": [], "current_date": 1700000600}`},
	)

	require.NoError(t, svc.RunCycle(context.Background()))
	require.NoError(t, svc.RunCycle(context.Background()))

	assert.Equal(t, []int64{1690000000, 1700000000}, src.fromDates)
	assert.Equal(t, int64(1700000600), svc.Cursor())
}

func TestRunCycle_EmptyListSendsNothing(t *testing.T) {
	svc, _, tg, _ := newTestService(t, sourceResult{body: `{"homeworks": [], "current_date": 1700000000}`})

	require.NoError(t, svc.RunCycle(context.Background()))

	assert.Empty(t, tg.messages)
	assert.Equal(t, int64(1700000000), svc.Cursor())
}

func TestRunCycle_MultipleRecordsInServerOrder(t *testing.T) {
	svc, _, tg, _ := newTestService(t, sourceResult{body: `{
		"homeworks": [
			{"status": "reviewing", "homework_name": "one"},
			{"status": "rejected", "lesson_name": "two"}
		],
		"current_date": 1700000000
	}`})

	require.NoError(t, svc.RunCycle(context.Background()))

	require.Len(t, tg.messages, 2)
	assert.Contains(t, tg.messages[0], `"one"`)
	assert.Contains(t, tg.messages[1], `"two"`)
}

func TestRunCycle_IdenticalErrorsReportedOnce(t *testing.T) {
	svc, _, tg, _ := newTestService(t, statusErr(http.StatusServiceUnavailable), statusErr(http.StatusServiceUnavailable))

	require.NoError(t, svc.RunCycle(context.Background()))
	require.NoError(t, svc.RunCycle(context.Background()))

	assert.Equal(t, []string{
		"Сбой в работе программы: Эндпоинт " + testEndpoint + " недоступен. Код ответа API: 503.",
	}, tg.messages)
	assert.Equal(t, int64(1690000000), svc.Cursor(), "cursor must not move on failure")
}

func TestRunCycle_DifferentErrorsReportedEach(t *testing.T) {
	svc, _, tg, _ := newTestService(t, statusErr(http.StatusServiceUnavailable), statusErr(http.StatusInternalServerError))

	require.NoError(t, svc.RunCycle(context.Background()))
	require.NoError(t, svc.RunCycle(context.Background()))

	require.Len(t, tg.messages, 2)
	assert.Contains(t, tg.messages[0], "503")
	assert.Contains(t, tg.messages[1], "500")
}

func TestRunCycle_AlternatingErrorsAreResent(t *testing.T) {
	svc, _, tg, _ := newTestService(t,
		statusErr(http.StatusServiceUnavailable),
		statusErr(http.StatusBadGateway),
		statusErr(http.StatusServiceUnavailable),
	)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RunCycle(context.Background()))
	}

	assert.Len(t, tg.messages, 3)
}

func TestRunCycle_SuccessDoesNotClearLastDiagnostic(t *testing.T) {
	svc, _, tg, _ := newTestService(t,
		statusErr(http.StatusServiceUnavailable),
		sourceResult{body: `{"homeworks": [], "current_date": 1700000000}`},
		statusErr(http.StatusServiceUnavailable),
	)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RunCycle(context.Background()))
	}

	assert.Len(t, tg.messages, 1)
	assert.Contains(t, svc.LastDiagnostic(), "503")
}

func TestRunCycle_UnknownStatusSendsOnlyDiagnostic(t *testing.T) {
	svc, _, tg, _ := newTestService(t, sourceResult{
		body: `{"homeworks": [{"status": "lost", "homework_name": "diplom"}], "current_date": 1700000000}`,
	})

	require.NoError(t, svc.RunCycle(context.Background()))

	assert.Equal(t, []string{"Сбой в работе программы: Статус lost отсутствует в словаре вердиктов."}, tg.messages)
	assert.Equal(t, int64(1690000000), svc.Cursor())
}

func TestRunCycle_MissingHomeworksFailsBeforeFormatting(t *testing.T) {
	svc, _, tg, _ := newTestService(t, sourceResult{body: `{"current_date": 1700000000}`})

	require.NoError(t, svc.RunCycle(context.Background()))

	require.Len(t, tg.messages, 1)
	assert.True(t, strings.HasPrefix(tg.messages[0], "Сбой в работе программы: "))
	assert.Contains(t, tg.messages[0], "homeworks")
}

func TestRunCycle_MissingCurrentDateKeepsCursor(t *testing.T) {
	svc, _, tg, _ := newTestService(t, sourceResult{
		body: `{"homeworks": [{"status": "approved", "homework_name": "diplom"}]}`,
	})

	require.NoError(t, svc.RunCycle(context.Background()))

	require.Len(t, tg.messages, 2)
	assert.Contains(t, tg.messages[1], "current_date")
	assert.Equal(t, int64(1690000000), svc.Cursor())
}

func TestRunCycle_StatusDeliveryFailureIsReported(t *testing.T) {
	svc, _, tg, _ := newTestService(t, sourceResult{
		body: `{"homeworks": [{"status": "approved", "homework_name": "diplom"}], "current_date": 1700000000}`,
	})
	tg.fail = func(text string) error {
		if strings.Contains(text, "diplom\". Работа") && !strings.HasPrefix(text, "Сбой") {
			return errors.New("telegram: bad gateway")
		}
		return nil
	}

	require.NoError(t, svc.RunCycle(context.Background()))

	require.Len(t, tg.messages, 1)
	assert.True(t, strings.HasPrefix(tg.messages[0], "Сбой в работе программы: Сбой при отправке сообщения: "))
	assert.Equal(t, int64(1690000000), svc.Cursor())
}

func TestRunCycle_DiagnosticDeliveryFailurePropagates(t *testing.T) {
	svc, _, tg, _ := newTestService(t, statusErr(http.StatusServiceUnavailable), statusErr(http.StatusServiceUnavailable))
	down := true
	tg.fail = func(string) error {
		if down {
			return errors.New("telegram: unreachable")
		}
		return nil
	}

	err := svc.RunCycle(context.Background())
	var deliveryErr *homework.DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	assert.Empty(t, svc.LastDiagnostic())

	down = false
	require.NoError(t, svc.RunCycle(context.Background()))
	assert.Len(t, tg.messages, 1, "undelivered diagnostic is retried on the next cycle")
}

func TestRunCycle_CancelledContextIsNotReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc, _, tg, _ := newTestService(t, sourceResult{err: &homework.TransportError{URL: testEndpoint, Err: context.Canceled}})
	cancel()

	err := svc.RunCycle(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tg.messages)
}

func TestRestore_FromStoredState(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	repo := memory.NewStateRepository()
	require.NoError(t, repo.SaveCursor(context.Background(), 1700000000, time.Unix(1700000001, 0)))
	require.NoError(t, repo.SaveDiagnostic(context.Background(), "Сбой в работе программы: old"))

	svc := NewHomeworkService(&fakeSource{t: t}, homework.NewFormatter(nil), &fakeTelegram{}, repo, 1, logrus.NewEntry(log))
	require.NoError(t, svc.Restore(context.Background()))

	assert.Equal(t, int64(1700000000), svc.Cursor())
	assert.Equal(t, "Сбой в работе программы: old", svc.LastDiagnostic())
}

type brokenRepo struct{ pollstate.Repository }

func (brokenRepo) Load(context.Context) (*pollstate.State, error) {
	return nil, errors.New("connection reset")
}

func TestRestore_LoadFailure(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := NewHomeworkService(&fakeSource{t: t}, homework.NewFormatter(nil), &fakeTelegram{}, brokenRepo{}, 1, logrus.NewEntry(log))

	assert.Error(t, svc.Restore(context.Background()))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "endpoint_status", errorKind(&homework.EndpointStatusError{}))
	assert.Equal(t, "delivery", errorKind(&homework.DeliveryError{Err: errors.New("x")}))
	assert.Equal(t, "transport", errorKind(&homework.TransportError{Err: errors.New("x")}))
	assert.Equal(t, "other", errorKind(errors.New("x")))
}
