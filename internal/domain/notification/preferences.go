package notification

import "github.com/google/uuid"

type Preferences struct {
	UserID          uuid.UUID
	Email           string
	TelegramChatID  string
	WhatsAppNumber  string
	EmailEnabled    bool
	TelegramEnabled bool
	WhatsAppEnabled bool
}

func (p Preferences) Enabled(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelTelegram:
		return p.TelegramEnabled
	case ChannelWhatsApp:
		return p.WhatsAppEnabled
	default:
		return false
	}
}

func (p Preferences) address(c Channel) string {
	switch c {
	case ChannelEmail:
		return p.Email
	case ChannelTelegram:
		return p.TelegramChatID
	case ChannelWhatsApp:
		return p.WhatsAppNumber
	default:
		return ""
	}
}

type Target struct {
	Channel Channel
	Address string
}

// Route resolves the channels an intent is delivered on.
//
// Hints restrict the channel set; without hints only channels with a known
// address are used. Preference toggles apply whenever prefs is known, and
// explicit recipient addresses win over stored ones. A hinted channel with
// no address is returned with an empty Address so it can be logged as skipped.
func Route(intent Intent, prefs *Preferences) []Target {
	candidates := intent.Channels
	hinted := len(candidates) > 0
	if !hinted {
		candidates = AllChannels
	}

	seen := make(map[Channel]struct{}, len(candidates))
	out := make([]Target, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}

		if prefs != nil && !prefs.Enabled(c) {
			continue
		}

		addr := intent.Recipient.address(c)
		if addr == "" && prefs != nil {
			addr = prefs.address(c)
		}
		if addr == "" && !hinted {
			continue
		}
		out = append(out, Target{Channel: c, Address: addr})
	}
	return out
}
