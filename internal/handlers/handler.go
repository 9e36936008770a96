package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nanno-banana-ppdb/internal/campaign"
	"nanno-banana-ppdb/internal/credentials"
	"nanno-banana-ppdb/internal/poster"
	"nanno-banana-ppdb/internal/session"
	"nanno-banana-ppdb/internal/telegram"
)

// Messenger is the part of the Telegram client the handler talks through.
type Messenger interface {
	SendTyping(chatID int64)
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
	DeleteMessage(chatID int64, messageID int) error
	SendPhotoBytes(chatID int64, data []byte, mimeType, caption string) error
}

type KeyStore interface {
	APIKey(ctx context.Context, scope string) (string, error)
	SetAPIKey(ctx context.Context, scope, key string) error
	DeleteAPIKey(ctx context.Context, scope string) error
}

type Options struct {
	Telegram Messenger
	Poster   *poster.Service
	Sessions *session.Store
	Keys     KeyStore
	Logger   *slog.Logger
}

type Handler struct {
	tg       Messenger
	poster   *poster.Service
	sessions *session.Store
	keys     KeyStore
	logger   *slog.Logger
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:       opts.Telegram,
		poster:   opts.Poster,
		sessions: opts.Sessions,
		keys:     opts.Keys,
		logger:   logger,
	}
}

// sessionID keys a form by chat and user so group chats keep one form per
// member.
func sessionID(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

// keyScope keys the stored API key by user, shared across chats.
func keyScope(userID int64) string {
	return "tg:" + strconv.FormatInt(userID, 10)
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if msg.Text != "" {
		return h.handleText(chatID, userID, msg.Text)
	}

	return nil
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	id := sessionID(chatID, userID)
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		if err := h.tg.SendText(chatID, helpText); err != nil {
			return err
		}
		h.sessions.GetOrCreate(id)
		return h.renderForm(chatID, userID, 0, false)
	case "new":
		h.sessions.GetOrCreate(id)
		if _, err := h.sessions.Reset(id); err != nil {
			return err
		}
		h.sessions.Update(id, func(s *session.Session) {
			s.AwaitingField = ""
			s.Menu = menuMain
		})
		_ = h.tg.SendText(chatID, "🆕 Formulir baru dibuat.")
		return h.renderForm(chatID, userID, 0, false)
	case "cancel":
		h.sessions.Update(id, func(s *session.Session) { s.AwaitingField = "" })
		return h.tg.SendText(chatID, "Dibatalkan.")
	case "set":
		return h.handleSet(chatID, userID, args)
	case "contact":
		return h.handleContact(chatID, userID, args)
	case "social":
		return h.handleSocial(chatID, userID, args)
	case "key":
		return h.handleKey(ctx, chatID, userID, msg.MessageID, args)
	case "prompt":
		return h.sendPrompt(chatID, userID)
	case "json":
		return h.sendEnvelope(chatID, userID)
	case "generate":
		return h.generate(ctx, chatID, userID)
	default:
		return h.tg.SendText(chatID, "❌ Perintah tidak dikenal. Gunakan /help.")
	}
}

// handleText fills the field the form is waiting for, if any.
func (h *Handler) handleText(chatID, userID int64, text string) error {
	id := sessionID(chatID, userID)
	sess := h.sessions.GetOrCreate(id)
	if sess.AwaitingField == "" {
		return h.tg.SendText(chatID, "Gunakan tombol pada formulir atau /help untuk daftar perintah.")
	}

	field := sess.AwaitingField
	if _, err := h.sessions.Apply(id, func(r campaign.Record) (campaign.Record, error) {
		return r.SetField(field, strings.TrimSpace(text))
	}); err != nil {
		return h.tg.SendText(chatID, "❌ "+err.Error())
	}
	h.sessions.Update(id, func(s *session.Session) { s.AwaitingField = "" })
	return h.renderForm(chatID, userID, 0, false)
}

func (h *Handler) handleSet(chatID, userID int64, args string) error {
	name, value, _ := strings.Cut(args, " ")
	if name == "" {
		return h.tg.SendText(chatID, "Format: /set <kolom> <nilai>\nKolom: "+fieldList())
	}
	field, err := campaign.ParseField(name)
	if err != nil {
		return h.tg.SendText(chatID, "❌ Kolom tidak dikenal. Kolom: "+fieldList())
	}

	id := sessionID(chatID, userID)
	h.sessions.GetOrCreate(id)

	value = strings.TrimSpace(value)
	if value == "" {
		if campaign.EnumValues(field) != nil {
			h.sessions.Update(id, func(s *session.Session) { s.Menu = string(field) })
			return h.renderForm(chatID, userID, 0, false)
		}
		h.sessions.Update(id, func(s *session.Session) { s.AwaitingField = field })
		return h.tg.SendText(chatID, "✏️ Kirim nilai untuk "+fieldLabel(field)+" (batal: /cancel).")
	}

	if _, err := h.sessions.Apply(id, func(r campaign.Record) (campaign.Record, error) {
		return r.SetField(field, value)
	}); err != nil {
		return h.tg.SendText(chatID, "❌ "+err.Error())
	}
	return h.renderForm(chatID, userID, 0, false)
}

// handleContact accepts "add", "del <n>" and "<n> <value>" with 1-based n.
func (h *Handler) handleContact(chatID, userID int64, args string) error {
	id := sessionID(chatID, userID)
	h.sessions.GetOrCreate(id)

	op, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)

	var apply func(campaign.Record) (campaign.Record, error)
	switch strings.ToLower(op) {
	case "add", "tambah":
		apply = func(r campaign.Record) (campaign.Record, error) { return r.AddContact(), nil }
	case "del", "hapus":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return h.tg.SendText(chatID, contactUsage)
		}
		apply = func(r campaign.Record) (campaign.Record, error) { return r.RemoveContact(n - 1), nil }
	default:
		n, err := strconv.Atoi(op)
		if err != nil || rest == "" {
			return h.tg.SendText(chatID, contactUsage)
		}
		apply = func(r campaign.Record) (campaign.Record, error) { return r.UpdateContact(n-1, rest), nil }
	}

	if _, err := h.sessions.Apply(id, apply); err != nil {
		return err
	}
	return h.renderForm(chatID, userID, 0, false)
}

// handleSocial accepts "add", "del <n>" and "<n> <platform> [handle]".
func (h *Handler) handleSocial(chatID, userID int64, args string) error {
	id := sessionID(chatID, userID)
	h.sessions.GetOrCreate(id)

	op, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)

	var apply func(campaign.Record) (campaign.Record, error)
	switch strings.ToLower(op) {
	case "add", "tambah":
		apply = func(r campaign.Record) (campaign.Record, error) { return r.AddSocial(), nil }
	case "del", "hapus":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return h.tg.SendText(chatID, socialUsage)
		}
		apply = func(r campaign.Record) (campaign.Record, error) { return r.RemoveSocial(n - 1), nil }
	default:
		n, err := strconv.Atoi(op)
		if err != nil {
			return h.tg.SendText(chatID, socialUsage)
		}
		platform, handle, ok := campaign.MatchPlatform(rest)
		if !ok {
			return h.tg.SendText(chatID, "❌ Platform tidak dikenal. Pilihan: "+strings.Join(campaign.SocialPlatforms(), ", "))
		}
		apply = func(r campaign.Record) (campaign.Record, error) {
			r, err := r.UpdateSocial(n-1, "platform", platform)
			if err != nil || handle == "" {
				return r, err
			}
			return r.UpdateSocial(n-1, "handle", handle)
		}
	}

	if _, err := h.sessions.Apply(id, apply); err != nil {
		return h.tg.SendText(chatID, "❌ "+err.Error())
	}
	return h.renderForm(chatID, userID, 0, false)
}

func (h *Handler) handleKey(ctx context.Context, chatID, userID int64, messageID int, args string) error {
	scope := keyScope(userID)

	switch strings.ToLower(args) {
	case "":
		key, err := h.keys.APIKey(ctx, scope)
		if err != nil {
			return err
		}
		if key == "" {
			return h.tg.SendText(chatID, "🔑 Belum ada API Key tersimpan.\nSimpan dengan: /key <API_KEY>")
		}
		return h.tg.SendText(chatID, "🔑 API Key tersimpan: "+credentials.Mask(key)+"\nHapus dengan: /key hapus")
	case "hapus", "delete":
		if err := h.keys.DeleteAPIKey(ctx, scope); err != nil {
			return err
		}
		return h.tg.SendText(chatID, "🗑 API Key dihapus.")
	}

	if err := h.keys.SetAPIKey(ctx, scope, args); err != nil {
		return err
	}
	if err := h.tg.DeleteMessage(chatID, messageID); err != nil {
		h.logger.Warn("delete key message failed", "chat_id", chatID, "err", err)
	}
	return h.tg.SendText(chatID, "✅ API Key disimpan: "+credentials.Mask(strings.TrimSpace(args)))
}

func (h *Handler) sendPrompt(chatID, userID int64) error {
	sess := h.sessions.GetOrCreate(sessionID(chatID, userID))
	return h.tg.SendText(chatID, h.poster.RenderText(sess.Record))
}

func (h *Handler) sendEnvelope(chatID, userID int64) error {
	sess := h.sessions.GetOrCreate(sessionID(chatID, userID))
	data, err := h.poster.RenderJSON(sess.Record).MarshalIndent()
	if err != nil {
		return err
	}
	return h.tg.SendText(chatID, string(data))
}

func (h *Handler) generate(ctx context.Context, chatID, userID int64) error {
	id := sessionID(chatID, userID)
	sess := h.sessions.GetOrCreate(id)

	if !h.sessions.BeginGeneration(id) {
		return h.tg.SendText(chatID, "⏳ Poster sedang dibuat, mohon tunggu.")
	}
	defer h.sessions.EndGeneration(id)

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, "🎨 Membuat poster, mohon tunggu...")

	res := h.poster.GenerateImage(ctx, keyScope(userID), sess.Record, "")
	if res.Err != nil && errors.Is(res.Err, context.Canceled) {
		return res.Err
	}

	switch res.Kind {
	case poster.KindImage:
		caption := "✅ Poster siap!"
		if sess.Record.SchoolName != "" {
			caption += " " + sess.Record.SchoolName
		}
		return h.tg.SendPhotoBytes(chatID, res.Image.Data, res.Image.MIMEType, caption)
	case poster.KindNoContent:
		return h.tg.SendText(chatID, "❌ "+res.Message)
	}

	text := "❌ " + res.Message
	if res.ReopenCredential {
		text += "\n\n🔑 Simpan API Key Anda dengan: /key <API_KEY>"
	}
	return h.tg.SendText(chatID, text)
}

const helpText = "🎓 Poster PPDB\n\n" +
	"Isi formulir dengan tombol di bawah, lalu tekan 🎨 Generate.\n\n" +
	"Perintah:\n" +
	"/new - Formulir baru\n" +
	"/set <kolom> <nilai> - Ubah kolom\n" +
	"/contact add | del <n> | <n> <nomor> - Kontak\n" +
	"/social add | del <n> | <n> <platform> <akun> - Media sosial\n" +
	"/key <API_KEY> - Simpan API Key Gemini (/key hapus untuk menghapus)\n" +
	"/prompt - Tampilkan prompt\n" +
	"/json - Tampilkan JSON\n" +
	"/generate - Buat poster\n" +
	"/cancel - Batalkan input"

const (
	contactUsage = "Format: /contact add | /contact del <n> | /contact <n> <nomor>"
	socialUsage  = "Format: /social add | /social del <n> | /social <n> <platform> <akun>"
)

func fieldList() string {
	names := make([]string, 0, len(campaign.Fields()))
	for _, f := range campaign.Fields() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
