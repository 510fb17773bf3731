package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"besedka/internal/booking"
	"besedka/internal/calendar"
	"besedka/internal/models"
	"besedka/internal/session"
	"besedka/internal/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser     int64 = 100
	testOperator int64 = 999
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func newFakeTelegram() *fakeTelegram {
	return &fakeTelegram{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "besedka_test_bot"}
}

// take returns and forgets everything sent so far.
func (f *fakeTelegram) take() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

func (f *fakeTelegram) lastCallback() tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if cb, ok := f.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb
		}
	}
	return tgbotapi.CallbackConfig{}
}

type harness struct {
	bot   *Bot
	tg    *fakeTelegram
	store *store.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := store.NewMemory([]models.Venue{
		{ID: "1", Name: "Лесная", HourlyPrice: 1000, Photo: "https://example.com/forest.jpg"},
		{ID: "2", Name: "Речная", HourlyPrice: 1500, Description: "У реки"},
	})
	machine := booking.NewMachine(booking.MachineConfig{PaymentDetails: "Карта 0000"}, nil)
	engine := booking.NewEngine(machine, st, session.NewMemory(time.Hour), nil, booking.EngineConfig{Location: time.UTC}, nil)
	engine.SetClock(func() time.Time { return time.Date(2030, 6, 10, 9, 0, 0, 0, time.UTC) })

	tg := newFakeTelegram()
	b, err := NewWithTelegramClient(tg, engine, st, Config{OperatorChatID: testOperator, OperatorPhone: "+7 900 000-00-00"}, nil)
	require.NoError(t, err)
	return &harness{bot: b, tg: tg, store: st}
}

func (h *harness) text(text string) {
	h.bot.handleUpdate(context.Background(), &tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: testUser},
		Chat: &tgbotapi.Chat{ID: testUser},
		Text: text,
	}})
}

func (h *harness) press(data string) {
	h.bot.handleUpdate(context.Background(), &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: testUser},
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: testUser}},
		Data:    data,
	}})
}

func TestNewWithTelegramClient_Validation(t *testing.T) {
	_, err := NewWithTelegramClient(nil, nil, nil, Config{}, nil)
	assert.Error(t, err)
}

func TestBookingFlow(t *testing.T) {
	h := newHarness(t)

	h.text("/start")
	sent := h.tg.take()
	require.Len(t, sent, 1)
	assert.Equal(t, mainMenu, sent[0].(tgbotapi.MessageConfig).ReplyMarkup)

	h.text(btnBook)
	sent = h.tg.take()
	require.Len(t, sent, 1)
	venues := sent[0].(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "venue:1", *venues.InlineKeyboard[0][0].CallbackData)

	h.press("venue:1")
	sent = h.tg.take()
	require.Len(t, sent, 1)
	edit, ok := sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 7, edit.MessageID)
	assert.Contains(t, edit.Text, "Лесная")

	h.press("date:2030:6:15")
	sent = h.tg.take()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].(tgbotapi.MessageConfig).Text, "Все окна свободны")
	times := sent[1].(tgbotapi.MessageConfig).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.Equal(t, "start:08:00", *times.InlineKeyboard[0][0].CallbackData)

	h.press("start:10:00")
	h.press("end:13:00")
	sent = h.tg.take()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].(tgbotapi.MessageConfig).Text, "3000₽")

	h.text("Иван")
	h.text("+79990000000")
	sent = h.tg.take()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].(tgbotapi.MessageConfig).Text, "1000₽/час × 3 ч = <u>3000₽</u>")

	rows, err := h.store.ListReservations(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusPending, rows[0].Status)

	h.bot.handleUpdate(context.Background(), &tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: testUser},
		Chat:  &tgbotapi.Chat{ID: testUser},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "big"}},
	}})
	sent = h.tg.take()
	require.Len(t, sent, 2)
	photo, ok := sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, testOperator, photo.ChatID)
	assert.Equal(t, tgbotapi.FileID("big"), photo.File)
	assert.Contains(t, photo.Caption, "Иван")
	thanks := sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, testUser, thanks.ChatID)
	assert.Contains(t, thanks.Text, "Иван")

	rows, err = h.store.ListReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, rows[0].Status)
}

func TestPastDate_ShowsAlert(t *testing.T) {
	h := newHarness(t)
	h.text(btnBook)
	h.press("venue:2")
	h.tg.take()

	h.press("date:2030:6:1")
	assert.Empty(t, h.tg.take())
	cb := h.tg.lastCallback()
	assert.True(t, cb.ShowAlert)
	assert.Contains(t, cb.Text, "прошедшую")
}

func TestStaleButton_AnsweredWithAlert(t *testing.T) {
	h := newHarness(t)
	h.press("end:13:00")
	cb := h.tg.lastCallback()
	assert.True(t, cb.ShowAlert)
	assert.Equal(t, "cb-end:13:00", cb.CallbackQueryID)
}

func TestConflictShowsBusyList(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(models.Reservation{Venue: "Лесная", Date: "15.06.2030", From: "10:00", To: "13:00", Status: models.StatusConfirmed})

	h.text(btnBook)
	h.press("venue:1")
	h.press("date:2030:6:15")
	h.press("start:12:00")
	h.tg.take()

	h.press("end:14:00")
	sent := h.tg.take()
	require.Len(t, sent, 1)
	msg := sent[0].(tgbotapi.MessageConfig)
	assert.Contains(t, msg.Text, "10:00")
	assert.Equal(t, mainMenu, msg.ReplyMarkup)
}

func TestCatalogue(t *testing.T) {
	h := newHarness(t)
	h.text(btnVenues)
	sent := h.tg.take()
	require.Len(t, sent, 2)

	photo, ok := sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.FileURL("https://example.com/forest.jpg"), photo.File)
	assert.Contains(t, photo.Caption, "1000₽/час")

	msg, ok := sent[1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "У реки")
}

func TestCallOperator(t *testing.T) {
	h := newHarness(t)
	h.text(btnCallOps)
	sent := h.tg.take()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].(tgbotapi.MessageConfig).Text, "+7 900 000-00-00")
}

func TestExport_OperatorOnly(t *testing.T) {
	h := newHarness(t)
	h.store.Seed(models.Reservation{Venue: "Лесная", Date: "15.06.2030", From: "10:00", To: "13:00", Status: models.StatusPending})

	// not the operator chat: plain text in idle state
	h.text("/export")
	sent := h.tg.take()
	require.Len(t, sent, 1)
	_, isDoc := sent[0].(tgbotapi.DocumentConfig)
	assert.False(t, isDoc)

	h.bot.handleUpdate(context.Background(), &tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: testOperator},
		Chat: &tgbotapi.Chat{ID: testOperator},
		Text: "/export",
	}})
	sent = h.tg.take()
	require.Len(t, sent, 1)
	doc, ok := sent[0].(tgbotapi.DocumentConfig)
	require.True(t, ok)
	assert.Equal(t, testOperator, doc.ChatID)
	assert.Equal(t, "Броней: 1", doc.Caption)
}

func TestRateLimit_DropsUpdates(t *testing.T) {
	h := newHarness(t)
	h.bot.limiter = newUserLimiter(0.001, 1)

	h.text(btnVenues)
	h.tg.take()
	h.text(btnVenues)
	assert.Empty(t, h.tg.take())
}

func TestStart_ProcessesUpdatesAndStops(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.bot.Start(ctx)
		close(done)
	}()

	h.tg.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: testUser},
		Chat: &tgbotapi.Chat{ID: testUser},
		Text: btnCallOps,
	}}

	assert.Eventually(t, func() bool {
		h.tg.mu.Lock()
		defer h.tg.mu.Unlock()
		return len(h.tg.sent) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
}

// ctxStore fails every call made with a finished context.
type ctxStore struct {
	*store.Memory
}

func (s ctxStore) ListVenues(ctx context.Context) ([]models.Venue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Memory.ListVenues(ctx)
}

func (s ctxStore) ListReservations(ctx context.Context) ([]models.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Memory.ListReservations(ctx)
}

func TestSubmit_QueuedUpdateSurvivesShutdown(t *testing.T) {
	st := ctxStore{store.NewMemory([]models.Venue{{ID: "1", Name: "Лесная", HourlyPrice: 1000}})}
	machine := booking.NewMachine(booking.MachineConfig{}, nil)
	engine := booking.NewEngine(machine, st, session.NewMemory(time.Hour), nil, booking.EngineConfig{Location: time.UTC}, nil)
	tg := newFakeTelegram()
	b, err := NewWithTelegramClient(tg, engine, st, Config{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.submit(ctx, tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: testUser},
		Chat: &tgbotapi.Chat{ID: testUser},
		Text: btnBook,
	}})
	b.dispatch.Wait()

	sent := tg.take()
	require.Len(t, sent, 1)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	_, isVenues := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, isVenues, "got %q", msg.Text)
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		want booking.Event
		ok   bool
	}{
		{"venue:1", booking.VenueSelected("1"), true},
		{"nav:2030:7", booking.CalendarNavigate(2030, 7), true},
		{"date:2030:6:15", booking.DateSelected(2030, 6, 15), true},
		{"start:10:00", booking.StartTimeSelected("10:00"), true},
		{"end:21:00", booking.EndTimeSelected("21:00"), true},
		{"cancel", booking.Cancel(), true},
		{"date:2030:6", booking.Event{}, false},
		{"nav:x:1", booking.Event{}, false},
		{"venue:", booking.Event{}, false},
		{"bogus", booking.Event{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, ok := parseCallback(tt.data)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCalendarKeyboard(t *testing.T) {
	today := models.Date{Year: 2030, Month: time.June, Day: 10}
	kb := calendarKeyboard(calendar.Generate(today, 2030, 6))

	nav := kb.InlineKeyboard[0]
	assert.Equal(t, "nav:2030:5", *nav[0].CallbackData)
	assert.Equal(t, "Июнь 2030", nav[1].Text)
	assert.Equal(t, "nav:2030:7", *nav[2].CallbackData)
	assert.Equal(t, "Пн", kb.InlineKeyboard[1][0].Text)

	// June 2030 starts on a Saturday
	first := kb.InlineKeyboard[2]
	assert.Equal(t, cbNoop, *first[0].CallbackData)
	assert.Equal(t, "·", first[5].Text)
	assert.Equal(t, "date:2030:6:1", *first[5].CallbackData)

	var found bool
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil && *btn.CallbackData == "date:2030:6:10" {
				assert.Equal(t, "10", btn.Text)
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestTimesKeyboard(t *testing.T) {
	times := []models.TimeOfDay{models.Clock(10, 0), models.Clock(10, 30), models.Clock(11, 0), models.Clock(11, 30), models.Clock(12, 0)}
	kb := timesKeyboard(booking.FieldEnd, times)
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Len(t, kb.InlineKeyboard[0], timesPerRow)
	assert.Equal(t, "end:12:00", *kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, cbCancel, *kb.InlineKeyboard[2][0].CallbackData)
}

func TestDispatcher_OrderPerKey(t *testing.T) {
	d := newDispatcher()
	var (
		mu  sync.Mutex
		got = make(map[int64][]int)
	)
	for i := 0; i < 50; i++ {
		for _, key := range []int64{1, 2, 3} {
			i, key := i, key
			d.Submit(key, func() {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			})
		}
	}
	d.Wait()

	for _, key := range []int64{1, 2, 3} {
		require.Len(t, got[key], 50)
		for i, v := range got[key] {
			assert.Equal(t, i, v)
		}
	}
}

func TestUserLimiter(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newUserLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow(1))
	assert.True(t, l.allow(1))
	assert.False(t, l.allow(1))
	assert.True(t, l.allow(2))

	now = now.Add(time.Second)
	assert.True(t, l.allow(1))

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, l.prune(time.Hour))
}

func TestUserLimiter_Disabled(t *testing.T) {
	l := newUserLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.allow(1))
	}
}
