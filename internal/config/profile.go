package config

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/statuswatch/statuswatch/internal/geom"
)

// Profile defaults.
const (
	DefaultInterval   = 3 // seconds
	DefaultSMTPServer = "smtp.gmail.com"
	DefaultSMTPPort   = 587
	DefaultStartHour  = 9
	DefaultRateLimit  = 60 // minutes
	DefaultOffsetX    = -40
	DefaultOffsetY    = 5
)

// Calibration modes stored in the profile.
const (
	CalibModeOffset = "offset" // indicator sampled relative to the matched name
	CalibModePoint  = "point"  // fixed point relative to the region origin
)

// Profile is the mutable monitor configuration. It round-trips through the
// JSON file format used by earlier builds, so the legacy numeric fields are
// written back as strings.
type Profile struct {
	TargetPerson   string
	TesseractPath  string // empty means "tesseract" from PATH
	OCRLangs       string // tesseract -l value, empty for engine default
	Interval       int    // seconds between cycles
	Region         geom.Region
	EmailEnabled   bool
	SMTPServer     string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string
	RecipientEmail string
	NotifyGreen    bool
	NotifyRed      bool
	EmailStartHour int
	EmailRateLimit int // minutes between emails, 0 disables the gate
	OffsetX        int
	OffsetY        int
	CalibMode      string
	CalibPoint     geom.Point
	TelegramToken  string
	TelegramChatID int64
	ChimeEnabled   bool
}

// DefaultProfile returns the documented defaults for every field.
func DefaultProfile() Profile {
	return Profile{
		Interval:       DefaultInterval,
		SMTPServer:     DefaultSMTPServer,
		SMTPPort:       DefaultSMTPPort,
		NotifyGreen:    true,
		NotifyRed:      true,
		EmailStartHour: DefaultStartHour,
		EmailRateLimit: DefaultRateLimit,
		OffsetX:        DefaultOffsetX,
		OffsetY:        DefaultOffsetY,
		CalibMode:      CalibModeOffset,
	}
}

// ParseProfile decodes a profile file, filling missing keys with defaults.
func ParseProfile(data []byte) (Profile, error) {
	p := DefaultProfile()
	if err := p.Merge(data); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Merge overlays the keys present in data onto p, leaving absent keys
// untouched. Unknown keys are ignored.
func (p *Profile) Merge(data []byte) error {
	w := p.wire()
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = w.profile()
	return nil
}

// Encode serializes the profile in the on-disk format.
func (p Profile) Encode() ([]byte, error) {
	return json.MarshalIndent(p.wire(), "", "  ")
}

// Clamp forces out-of-range values back to safe defaults. Offsets are left
// alone here; the classifier clamps them at sample time.
func (p *Profile) Clamp() {
	if p.Interval < 1 {
		p.Interval = DefaultInterval
	}
	if p.SMTPPort < 1 || p.SMTPPort > 65535 {
		p.SMTPPort = DefaultSMTPPort
	}
	if p.EmailStartHour < 0 || p.EmailStartHour > 23 {
		p.EmailStartHour = DefaultStartHour
	}
	if p.EmailRateLimit < 0 {
		p.EmailRateLimit = 0
	}
	if p.CalibMode != CalibModePoint {
		p.CalibMode = CalibModeOffset
	}
	if !p.Region.IsZero() && !p.Region.Valid() {
		p.Region = geom.Region{}
	}
}

// Redacted returns a copy safe to expose over the API.
func (p Profile) Redacted() Profile {
	p.SenderPassword = ""
	p.TelegramToken = ""
	return p
}

type profileWire struct {
	TargetPerson   string   `json:"target_person"`
	TesseractPath  string   `json:"tesseract_path"`
	OCRLangs       string   `json:"ocr_langs,omitempty"`
	Interval       looseInt `json:"interval"`
	EmailEnabled   bool     `json:"email_enabled"`
	SMTPServer     string   `json:"smtp_server"`
	SMTPPort       looseInt `json:"smtp_port"`
	SenderEmail    string   `json:"sender_email"`
	SenderPassword string   `json:"sender_password,omitempty"`
	RecipientEmail string   `json:"recipient_email"`
	NotifyGreen    bool     `json:"notify_green"`
	NotifyRed      bool     `json:"notify_red"`
	EmailStartHour looseInt `json:"email_start_hour"`
	EmailRateLimit looseInt `json:"email_rate_limit"`
	OffsetX        int      `json:"status_offset_x"`
	OffsetY        int      `json:"status_offset_y"`
	CalibMode      string   `json:"calibration_mode,omitempty"`
	CalibPointX    int      `json:"calibration_point_x,omitempty"`
	CalibPointY    int      `json:"calibration_point_y,omitempty"`
	RegionX1       int      `json:"region_x1,omitempty"`
	RegionY1       int      `json:"region_y1,omitempty"`
	RegionX2       int      `json:"region_x2,omitempty"`
	RegionY2       int      `json:"region_y2,omitempty"`
	TelegramToken  string   `json:"telegram_token,omitempty"`
	TelegramChatID int64    `json:"telegram_chat_id,omitempty"`
	ChimeEnabled   bool     `json:"chime_enabled,omitempty"`
}

func (p Profile) wire() profileWire {
	return profileWire{
		TargetPerson:   p.TargetPerson,
		TesseractPath:  p.TesseractPath,
		OCRLangs:       p.OCRLangs,
		Interval:       looseInt(p.Interval),
		EmailEnabled:   p.EmailEnabled,
		SMTPServer:     p.SMTPServer,
		SMTPPort:       looseInt(p.SMTPPort),
		SenderEmail:    p.SenderEmail,
		SenderPassword: p.SenderPassword,
		RecipientEmail: p.RecipientEmail,
		NotifyGreen:    p.NotifyGreen,
		NotifyRed:      p.NotifyRed,
		EmailStartHour: looseInt(p.EmailStartHour),
		EmailRateLimit: looseInt(p.EmailRateLimit),
		OffsetX:        p.OffsetX,
		OffsetY:        p.OffsetY,
		CalibMode:      p.CalibMode,
		CalibPointX:    p.CalibPoint.X,
		CalibPointY:    p.CalibPoint.Y,
		RegionX1:       p.Region.X1,
		RegionY1:       p.Region.Y1,
		RegionX2:       p.Region.X2,
		RegionY2:       p.Region.Y2,
		TelegramToken:  p.TelegramToken,
		TelegramChatID: p.TelegramChatID,
		ChimeEnabled:   p.ChimeEnabled,
	}
}

func (w profileWire) profile() Profile {
	return Profile{
		TargetPerson:   w.TargetPerson,
		TesseractPath:  w.TesseractPath,
		OCRLangs:       w.OCRLangs,
		Interval:       int(w.Interval),
		Region:         geom.Region{X1: w.RegionX1, Y1: w.RegionY1, X2: w.RegionX2, Y2: w.RegionY2},
		EmailEnabled:   w.EmailEnabled,
		SMTPServer:     w.SMTPServer,
		SMTPPort:       int(w.SMTPPort),
		SenderEmail:    w.SenderEmail,
		SenderPassword: w.SenderPassword,
		RecipientEmail: w.RecipientEmail,
		NotifyGreen:    w.NotifyGreen,
		NotifyRed:      w.NotifyRed,
		EmailStartHour: int(w.EmailStartHour),
		EmailRateLimit: int(w.EmailRateLimit),
		OffsetX:        w.OffsetX,
		OffsetY:        w.OffsetY,
		CalibMode:      w.CalibMode,
		CalibPoint:     geom.Point{X: w.CalibPointX, Y: w.CalibPointY},
		TelegramToken:  w.TelegramToken,
		TelegramChatID: w.TelegramChatID,
		ChimeEnabled:   w.ChimeEnabled,
	}
}

// looseInt tolerates numeric JSON strings on read and always writes itself
// back as a string, matching profile files produced by earlier builds.
type looseInt int

func (l looseInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(l)))
}

func (l *looseInt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*l = looseInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = looseInt(n)
	return nil
}
