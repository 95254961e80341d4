package bot

import (
	"strings"
)

// Callback data prefixes carried by inline buttons
const (
	prefixToken     = "token:"
	prefixPriceKind = "priceType:"
	prefixDate      = "date:"
	prefixCalendar  = "cal:"
	dataNoop        = "noop"
)

// Event is an inbound chat interaction. The set of implementations is closed;
// Controller.Handle switches over every one of them.
type Event interface {
	ChatID() int64
	isEvent()
}

// CommandEvent is a slash command such as /predict
type CommandEvent struct {
	Chat int64
	Name string
}

// TextEvent is free text; its meaning depends on the pending prompt
type TextEvent struct {
	Chat int64
	Text string
}

// InstrumentEvent is a press on a token button
type InstrumentEvent struct {
	Chat      int64
	MessageID int
	Symbol    string
}

// PriceKindEvent is a press on a price kind button
type PriceKindEvent struct {
	Chat      int64
	MessageID int
	Kind      string
}

// DateEvent is a day picked on the inline calendar
type DateEvent struct {
	Chat      int64
	MessageID int
	Date      string
}

// CalendarNavEvent asks the calendar on MessageID to show Month (YYYY-MM)
type CalendarNavEvent struct {
	Chat      int64
	MessageID int
	Month     string
}

// NoopEvent is a press on a decorative calendar cell
type NoopEvent struct {
	Chat int64
}

// UnknownEvent is anything that could not be classified
type UnknownEvent struct {
	Chat int64
	Data string
}

func (e CommandEvent) ChatID() int64     { return e.Chat }
func (e TextEvent) ChatID() int64        { return e.Chat }
func (e InstrumentEvent) ChatID() int64  { return e.Chat }
func (e PriceKindEvent) ChatID() int64   { return e.Chat }
func (e DateEvent) ChatID() int64        { return e.Chat }
func (e CalendarNavEvent) ChatID() int64 { return e.Chat }
func (e NoopEvent) ChatID() int64        { return e.Chat }
func (e UnknownEvent) ChatID() int64     { return e.Chat }

func (CommandEvent) isEvent()     {}
func (TextEvent) isEvent()        {}
func (InstrumentEvent) isEvent()  {}
func (PriceKindEvent) isEvent()   {}
func (DateEvent) isEvent()        {}
func (CalendarNavEvent) isEvent() {}
func (NoopEvent) isEvent()        {}
func (UnknownEvent) isEvent()     {}

// ParseText classifies a text message
func ParseText(chatID int64, text string) Event {
	text = strings.TrimSpace(text)
	if text == "" {
		return UnknownEvent{Chat: chatID}
	}
	if strings.HasPrefix(text, "/") {
		name := strings.Fields(text)[0][1:]
		// commands in groups arrive as /predict@SomeBot
		if at := strings.IndexByte(name, '@'); at >= 0 {
			name = name[:at]
		}
		return CommandEvent{Chat: chatID, Name: strings.ToLower(name)}
	}
	return TextEvent{Chat: chatID, Text: text}
}

// ParseCallback classifies inline button data
func ParseCallback(chatID int64, messageID int, data string) Event {
	switch {
	case strings.HasPrefix(data, prefixToken):
		return InstrumentEvent{Chat: chatID, MessageID: messageID, Symbol: strings.TrimPrefix(data, prefixToken)}
	case strings.HasPrefix(data, prefixPriceKind):
		return PriceKindEvent{Chat: chatID, MessageID: messageID, Kind: strings.TrimPrefix(data, prefixPriceKind)}
	case strings.HasPrefix(data, prefixDate):
		return DateEvent{Chat: chatID, MessageID: messageID, Date: strings.TrimPrefix(data, prefixDate)}
	case strings.HasPrefix(data, prefixCalendar):
		return CalendarNavEvent{Chat: chatID, MessageID: messageID, Month: strings.TrimPrefix(data, prefixCalendar)}
	case data == dataNoop:
		return NoopEvent{Chat: chatID}
	default:
		return UnknownEvent{Chat: chatID, Data: data}
	}
}
