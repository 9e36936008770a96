package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanno-banana-ppdb/internal/campaign"
	"nanno-banana-ppdb/internal/gemini"
	"nanno-banana-ppdb/internal/poster"
	"nanno-banana-ppdb/internal/session"
	"nanno-banana-ppdb/internal/telegram"
)

const (
	chatID int64 = 100
	userID int64 = 7
)

type fakeMessenger struct {
	mu      sync.Mutex
	texts   []string
	forms   []string
	photos  int
	deleted []int
	answers []string
	nextID  int
}

func (f *fakeMessenger) SendTyping(int64) {}

func (f *fakeMessenger) SendText(_ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendTextWithKeyboard(_ int64, text string, _ telegram.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, text)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeMessenger) EditTextWithKeyboard(_ int64, _ int, text string, _ telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, text)
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ string, text string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) SendPhotoBytes(int64, []byte, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos++
	return nil
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type fakeRequestor struct {
	defaultKey bool
	img        *gemini.Image
	err        error
	lastKey    string
}

func (f *fakeRequestor) RequestImage(_ context.Context, _, _, key string) (*gemini.Image, error) {
	f.lastKey = key
	return f.img, f.err
}

func (f *fakeRequestor) HasDefaultKey() bool { return f.defaultKey }

type memKeys map[string]string

func (m memKeys) APIKey(_ context.Context, scope string) (string, error) { return m[scope], nil }
func (m memKeys) SetAPIKey(_ context.Context, scope, key string) error {
	m[scope] = strings.TrimSpace(key)
	return nil
}
func (m memKeys) DeleteAPIKey(_ context.Context, scope string) error {
	delete(m, scope)
	return nil
}

type harness struct {
	h        *Handler
	tg       *fakeMessenger
	req      *fakeRequestor
	keys     memKeys
	sessions *session.Store
}

func newHarness(req *fakeRequestor) *harness {
	tg := &fakeMessenger{}
	keys := memKeys{}
	sessions := session.NewStore(session.Options{})
	h := New(Options{
		Telegram: tg,
		Poster:   poster.New(poster.Options{Requestor: req, Keys: keys}),
		Sessions: sessions,
		Keys:     keys,
	})
	return &harness{h: h, tg: tg, req: req, keys: keys, sessions: sessions}
}

func command(text string) telegram.Update {
	cmd, _, _ := strings.Cut(text, " ")
	return telegram.Update{Message: &tgbotapi.Message{
		MessageID: 55,
		From:      &tgbotapi.User{ID: userID},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func plain(text string) telegram.Update {
	return telegram.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}}
}

func press(from int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: from},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 9, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func (hs *harness) record(t *testing.T) campaign.Record {
	t.Helper()
	sess, err := hs.sessions.Get(sessionID(chatID, userID))
	require.NoError(t, err)
	return sess.Record
}

func TestStartShowsForm(t *testing.T) {
	hs := newHarness(&fakeRequestor{})
	require.NoError(t, hs.h.HandleUpdate(context.Background(), command("/start")))

	assert.Contains(t, hs.tg.texts[0], "/generate")
	require.Len(t, hs.tg.forms, 1)
	assert.Contains(t, hs.tg.forms[0], "Rasio: 3:4")
}

func TestSetCommand(t *testing.T) {
	ctx := context.Background()
	hs := newHarness(&fakeRequestor{})

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/set school_name MAN 1 Kota Cerdas")))
	assert.Equal(t, "MAN 1 Kota Cerdas", hs.record(t).SchoolName)

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/set level Kuliah")))
	assert.Contains(t, hs.tg.lastText(), "invalid value")
	assert.Equal(t, "MA", hs.record(t).Level)

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/set warna merah")))
	assert.Contains(t, hs.tg.lastText(), "Kolom tidak dikenal")
}

func TestAwaitedFieldCapture(t *testing.T) {
	ctx := context.Background()
	hs := newHarness(&fakeRequestor{})

	require.NoError(t, hs.h.HandleUpdate(ctx, press(userID, cb(userID, "ask", "tagline"))))
	require.NoError(t, hs.h.HandleUpdate(ctx, plain("Cerdas dan Berakhlak")))

	assert.Equal(t, "Cerdas dan Berakhlak", hs.record(t).Tagline)

	require.NoError(t, hs.h.HandleUpdate(ctx, plain("lagi")))
	assert.Equal(t, "Cerdas dan Berakhlak", hs.record(t).Tagline, "capture is one-shot")
}

func TestEnumAndTrackCallbacks(t *testing.T) {
	ctx := context.Background()
	hs := newHarness(&fakeRequestor{})

	ratios := campaign.AspectRatios()
	require.NoError(t, hs.h.HandleUpdate(ctx, press(userID, cb(userID, "set", "aspect_ratio", "5"))))
	assert.Equal(t, ratios[5], hs.record(t).AspectRatio)

	require.NoError(t, hs.h.HandleUpdate(ctx, press(userID, cb(userID, "set", "aspect_ratio", "99"))))
	assert.Equal(t, ratios[5], hs.record(t).AspectRatio)

	require.NoError(t, hs.h.HandleUpdate(ctx, press(userID, cb(userID, "track", "2"))))
	require.NoError(t, hs.h.HandleUpdate(ctx, press(userID, cb(userID, "track", "0"))))
	opts := campaign.TrackOptions()
	assert.Equal(t, []string{opts[2], opts[0]}, hs.record(t).Tracks)

	require.NoError(t, hs.h.HandleUpdate(ctx, press(userID, cb(userID, "track", "2"))))
	assert.Equal(t, []string{opts[0]}, hs.record(t).Tracks)
}

func TestCallbackFromOtherUserIsRefused(t *testing.T) {
	ctx := context.Background()
	hs := newHarness(&fakeRequestor{})

	require.NoError(t, hs.h.HandleUpdate(ctx, press(999, cb(userID, "reset"))))
	assert.Equal(t, []string{"Formulir ini bukan milik Anda."}, hs.tg.answers)
	assert.Zero(t, hs.sessions.Len())
}

func TestContactAndSocialCommands(t *testing.T) {
	ctx := context.Background()
	hs := newHarness(&fakeRequestor{})

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/contact 1 0812-1111-2222")))
	require.NoError(t, hs.h.HandleUpdate(ctx, command("/contact add")))
	require.NoError(t, hs.h.HandleUpdate(ctx, command("/contact 2 0813-3333-4444")))
	assert.Equal(t, []string{"0812-1111-2222", "0813-3333-4444"}, hs.record(t).Contacts)

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/contact del 1")))
	require.NoError(t, hs.h.HandleUpdate(ctx, command("/contact del 1")))
	assert.Equal(t, []string{"0813-3333-4444"}, hs.record(t).Contacts, "last contact is kept")

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/social 1 tiktok @mankota")))
	assert.Equal(t, []campaign.Social{{Platform: "TikTok", Handle: "@mankota"}}, hs.record(t).Socials)

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/social 1 myspace @x")))
	assert.Contains(t, hs.tg.lastText(), "Platform tidak dikenal")
}

func TestKeyCommand(t *testing.T) {
	ctx := context.Background()
	hs := newHarness(&fakeRequestor{})

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/key AIzaSyabcdwxyz")))
	assert.Equal(t, "AIzaSyabcdwxyz", hs.keys[keyScope(userID)])
	assert.Equal(t, []int{55}, hs.tg.deleted)
	assert.NotContains(t, hs.tg.lastText(), "AIzaSyabcd")

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/key")))
	assert.Contains(t, hs.tg.lastText(), "wxyz")

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/key hapus")))
	assert.Empty(t, hs.keys[keyScope(userID)])
}

func TestGenerateUsesStoredUserKey(t *testing.T) {
	ctx := context.Background()
	req := &fakeRequestor{img: &gemini.Image{MIMEType: "image/png", Data: []byte("x")}}
	hs := newHarness(req)
	hs.keys[keyScope(userID)] = "user-key"

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/generate")))
	assert.Equal(t, 1, hs.tg.photos)
	assert.Equal(t, "user-key", req.lastKey)

	sess, err := hs.sessions.Get(sessionID(chatID, userID))
	require.NoError(t, err)
	assert.False(t, sess.Generating)
}

func TestGenerateWithoutKey(t *testing.T) {
	hs := newHarness(&fakeRequestor{})

	require.NoError(t, hs.h.HandleUpdate(context.Background(), command("/generate")))
	assert.Zero(t, hs.tg.photos)
	assert.Contains(t, hs.tg.lastText(), "API Key")
	assert.Contains(t, hs.tg.lastText(), "/key")
}

func TestGenerateRefusedWhilePending(t *testing.T) {
	hs := newHarness(&fakeRequestor{defaultKey: true})
	id := sessionID(chatID, userID)
	hs.sessions.GetOrCreate(id)
	require.True(t, hs.sessions.BeginGeneration(id))

	require.NoError(t, hs.h.HandleUpdate(context.Background(), command("/generate")))
	assert.Contains(t, hs.tg.lastText(), "sedang dibuat")
}

func TestPromptAndJSONCommands(t *testing.T) {
	ctx := context.Background()
	hs := newHarness(&fakeRequestor{})

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/prompt")))
	assert.True(t, strings.HasPrefix(hs.tg.lastText(), "Create a high-quality"))

	require.NoError(t, hs.h.HandleUpdate(ctx, command("/json")))
	assert.Contains(t, hs.tg.lastText(), `"negative_prompt"`)
}

func TestParseCallback(t *testing.T) {
	c, ok := parseCallback(cb(42, "set", "level", "3"))
	require.True(t, ok)
	assert.Equal(t, callback{Owner: 42, Action: "set", Args: []string{"level", "3"}}, c)

	_, ok = parseCallback("pv:42:menu")
	assert.False(t, ok)
	_, ok = parseCallback("pp:abc:menu")
	assert.False(t, ok)
}

func TestKeyboardPayloadsFitTelegramLimit(t *testing.T) {
	const owner int64 = 9_999_999_999
	rec := campaign.Default()
	sess := session.Session{Record: rec}

	menus := []string{menuMain, menuTracks}
	for _, f := range campaign.Fields() {
		if campaign.EnumValues(f) != nil {
			menus = append(menus, string(f))
		}
	}
	for _, m := range menus {
		sess.Menu = m
		for _, row := range formKeyboard(owner, sess).InlineKeyboard {
			for _, btn := range row {
				require.NotNil(t, btn.CallbackData)
				assert.LessOrEqual(t, len(*btn.CallbackData), 64, *btn.CallbackData)
			}
		}
	}
}
