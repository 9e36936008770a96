package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nanno-banana-ppdb/internal/campaign"
	"nanno-banana-ppdb/internal/prompt"
	"nanno-banana-ppdb/internal/session"
	"nanno-banana-ppdb/internal/telegram"
)

const formCallbackPrefix = "pp"

const (
	menuMain   = "main"
	menuTracks = "tracks"
)

var fieldLabels = map[campaign.Field]string{
	campaign.FieldSchoolName:    "Nama Sekolah",
	campaign.FieldAcademicYear:  "Tahun Ajaran",
	campaign.FieldAccreditation: "Akreditasi",
	campaign.FieldTagline:       "Tagline",
	campaign.FieldLevel:         "Jenjang",
	campaign.FieldCustomTrack:   "Jalur Lainnya",
	campaign.FieldRequirements:  "Persyaratan",
	campaign.FieldDays:          "Hari",
	campaign.FieldDate:          "Tanggal",
	campaign.FieldTime:          "Jam",
	campaign.FieldLocation:      "Lokasi",
	campaign.FieldVisualStyle:   "Gaya Visual",
	campaign.FieldMood:          "Mood",
	campaign.FieldAspectRatio:   "Rasio",
}

func fieldLabel(f campaign.Field) string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// callback is a parsed inline button payload: pp:<owner>:<action>[:args].
type callback struct {
	Owner  int64
	Action string
	Args   []string
}

func cb(ownerID int64, parts ...string) string {
	return fmt.Sprintf("%s:%d:%s", formCallbackPrefix, ownerID, strings.Join(parts, ":"))
}

func parseCallback(data string) (callback, bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 3 || parts[0] != formCallbackPrefix {
		return callback{}, false
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	return callback{Owner: owner, Action: parts[2], Args: parts[3:]}, true
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	c, ok := parseCallback(q.Data)
	if !ok {
		return nil
	}
	if c.Owner != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "Formulir ini bukan milik Anda.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	msgID := q.Message.MessageID
	id := sessionID(chatID, c.Owner)
	h.sessions.GetOrCreate(id)

	notice := ""
	switch c.Action {
	case "menu":
		if len(c.Args) == 1 {
			h.sessions.Update(id, func(s *session.Session) { s.Menu = c.Args[0] })
		}
	case "set":
		notice = h.applyEnumCallback(id, c.Args)
	case "track":
		notice = h.applyTrackCallback(id, c.Args)
	case "ask":
		if len(c.Args) == 1 {
			field, err := campaign.ParseField(c.Args[0])
			if err != nil {
				break
			}
			h.sessions.Update(id, func(s *session.Session) { s.AwaitingField = field })
			_ = h.tg.AnswerCallback(q.ID, "Kirim nilai sebagai pesan.", false)
			return h.tg.SendText(chatID, "✏️ Kirim nilai untuk "+fieldLabel(field)+" (batal: /cancel).")
		}
	case "prompt":
		_ = h.tg.AnswerCallback(q.ID, "Mengirim prompt…", false)
		return h.sendPrompt(chatID, c.Owner)
	case "json":
		_ = h.tg.AnswerCallback(q.ID, "Mengirim JSON…", false)
		return h.sendEnvelope(chatID, c.Owner)
	case "generate":
		_ = h.tg.AnswerCallback(q.ID, "Membuat poster…", false)
		return h.generate(ctx, chatID, c.Owner)
	case "reset":
		if _, err := h.sessions.Reset(id); err != nil {
			return err
		}
		h.sessions.Update(id, func(s *session.Session) {
			s.Menu = menuMain
			s.AwaitingField = ""
		})
	case "close":
		h.sessions.Update(id, func(s *session.Session) {
			s.Menu = menuMain
			s.AwaitingField = ""
		})
	}

	if notice != "" {
		_ = h.tg.AnswerCallback(q.ID, notice, true)
	} else {
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
	}
	return h.renderForm(chatID, c.Owner, msgID, true)
}

// applyEnumCallback handles set:<field>:<option index>. Indexes keep the
// payload under Telegram's 64 byte limit.
func (h *Handler) applyEnumCallback(id string, args []string) string {
	if len(args) != 2 {
		return ""
	}
	field, err := campaign.ParseField(args[0])
	if err != nil {
		return err.Error()
	}
	values := campaign.EnumValues(field)
	idx, err := strconv.Atoi(args[1])
	if err != nil || idx < 0 || idx >= len(values) {
		return "Pilihan tidak valid."
	}
	if _, err := h.sessions.Apply(id, func(r campaign.Record) (campaign.Record, error) {
		return r.SetField(field, values[idx])
	}); err != nil {
		return err.Error()
	}
	h.sessions.Update(id, func(s *session.Session) { s.Menu = menuMain })
	return ""
}

func (h *Handler) applyTrackCallback(id string, args []string) string {
	if len(args) != 1 {
		return ""
	}
	options := campaign.TrackOptions()
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 || idx >= len(options) {
		return "Pilihan tidak valid."
	}
	if _, err := h.sessions.Apply(id, func(r campaign.Record) (campaign.Record, error) {
		return r.ToggleTrack(options[idx])
	}); err != nil {
		return err.Error()
	}
	return ""
}

func (h *Handler) renderForm(chatID, userID int64, messageID int, edit bool) error {
	id := sessionID(chatID, userID)
	sess := h.sessions.GetOrCreate(id)
	if messageID == 0 {
		messageID = sess.MessageID
	}

	text := formText(sess)
	kb := formKeyboard(userID, sess)

	if edit && messageID != 0 {
		if err := h.tg.EditTextWithKeyboard(chatID, messageID, text, kb); err == nil {
			return nil
		}
	}

	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.sessions.Update(id, func(s *session.Session) { s.MessageID = msgID })
	return nil
}

func formText(sess session.Session) string {
	r := sess.Record

	var b strings.Builder
	b.WriteString("🎓 Poster PPDB\n\n")
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			value = "-"
		}
		b.WriteString(label + ": " + truncateLine(value, 80) + "\n")
	}

	line("Sekolah", r.SchoolName)
	line("Tahun Ajaran", r.AcademicYear)
	line("Akreditasi", r.Accreditation)
	line("Tagline", r.Tagline)
	line("Jenjang", r.Level)
	line("Jalur", prompt.TrackList(r))
	line("Persyaratan", r.Requirements)
	line("Hari", r.Days)
	line("Tanggal", r.Date)
	line("Jam", r.Time)
	line("Lokasi", r.Location)
	line("Kontak", prompt.ContactList(r))
	line("Sosmed", prompt.SocialList(r))
	line("Gaya", r.VisualStyle)
	line("Mood", r.Mood)
	line("Rasio", r.AspectRatio)

	if sess.Generating {
		b.WriteString("\n⏳ Poster sedang dibuat…\n")
	} else if sess.AwaitingField != "" {
		b.WriteString("\n✏️ Menunggu nilai untuk " + fieldLabel(sess.AwaitingField) + " (batal: /cancel).\n")
	}

	return strings.TrimSpace(b.String())
}

func formKeyboard(ownerID int64, sess session.Session) telegram.Keyboard {
	field := campaign.Field(sess.Menu)
	switch {
	case sess.Menu == menuTracks:
		return tracksKeyboard(ownerID, sess.Record)
	case campaign.EnumValues(field) != nil:
		return enumKeyboard(ownerID, field, sess.Record)
	default:
		return mainKeyboard(ownerID)
	}
}

func mainKeyboard(ownerID int64) telegram.Keyboard {
	ask := func(f campaign.Field) telegram.KeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(fieldLabel(f), cb(ownerID, "ask", string(f)))
	}
	menu := func(f campaign.Field) telegram.KeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(fieldLabel(f)+" ▾", cb(ownerID, "menu", string(f)))
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		[]telegram.KeyboardButton{ask(campaign.FieldSchoolName), ask(campaign.FieldAcademicYear)},
		[]telegram.KeyboardButton{menu(campaign.FieldAccreditation), ask(campaign.FieldTagline)},
		[]telegram.KeyboardButton{
			menu(campaign.FieldLevel),
			tgbotapi.NewInlineKeyboardButtonData("Jalur ▾", cb(ownerID, "menu", menuTracks)),
		},
		[]telegram.KeyboardButton{ask(campaign.FieldRequirements), ask(campaign.FieldLocation)},
		[]telegram.KeyboardButton{ask(campaign.FieldDays), ask(campaign.FieldDate), ask(campaign.FieldTime)},
		[]telegram.KeyboardButton{menu(campaign.FieldVisualStyle), ask(campaign.FieldMood), menu(campaign.FieldAspectRatio)},
		[]telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("📄 Prompt", cb(ownerID, "prompt")),
			tgbotapi.NewInlineKeyboardButtonData("🧾 JSON", cb(ownerID, "json")),
		},
		[]telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("🎨 Generate", cb(ownerID, "generate")),
		},
		[]telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Reset", cb(ownerID, "reset")),
			tgbotapi.NewInlineKeyboardButtonData("Tutup", cb(ownerID, "close")),
		},
	)
}

func enumKeyboard(ownerID int64, field campaign.Field, rec campaign.Record) telegram.Keyboard {
	current, _ := rec.Value(field)

	var rows [][]telegram.KeyboardButton
	var row []telegram.KeyboardButton
	for i, v := range campaign.EnumValues(field) {
		label := v
		if v == current {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "set", string(field), strconv.Itoa(i))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []telegram.KeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Kembali", cb(ownerID, "menu", menuMain)),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func tracksKeyboard(ownerID int64, rec campaign.Record) telegram.Keyboard {
	var rows [][]telegram.KeyboardButton
	for i, t := range campaign.TrackOptions() {
		label := "⬜ " + t
		if rec.HasTrack(t) {
			label = "✅ " + t
		}
		rows = append(rows, []telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "track", strconv.Itoa(i))),
		})
	}

	if rec.HasTrack(campaign.CustomTrack) {
		rows = append(rows, []telegram.KeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("✏️ "+fieldLabel(campaign.FieldCustomTrack), cb(ownerID, "ask", string(campaign.FieldCustomTrack))),
		})
	}

	rows = append(rows, []telegram.KeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅ Kembali", cb(ownerID, "menu", menuMain)),
	})
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}
