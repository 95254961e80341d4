package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Event
	}{
		{"command", "/predict", CommandEvent{Chat: 7, Name: "predict"}},
		{"command with bot name", "/Predict@TokenPriceBot", CommandEvent{Chat: 7, Name: "predict"}},
		{"command with arguments", "/start ETH", CommandEvent{Chat: 7, Name: "start"}},
		{"legacy entry", "/command1", CommandEvent{Chat: 7, Name: "command1"}},
		{"free text", "  ETH ", TextEvent{Chat: 7, Text: "ETH"}},
		{"date", "2024-01-27", TextEvent{Chat: 7, Text: "2024-01-27"}},
		{"blank", "   ", UnknownEvent{Chat: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseText(7, tt.text))
		})
	}
}

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data string
		want Event
	}{
		{"token:ETH", InstrumentEvent{Chat: 3, MessageID: 11, Symbol: "ETH"}},
		{"priceType:high", PriceKindEvent{Chat: 3, MessageID: 11, Kind: "high"}},
		{"date:2024-01-27", DateEvent{Chat: 3, MessageID: 11, Date: "2024-01-27"}},
		{"cal:2024-02", CalendarNavEvent{Chat: 3, MessageID: 11, Month: "2024-02"}},
		{"noop", NoopEvent{Chat: 3}},
		{"pair_EUR/USD", UnknownEvent{Chat: 3, Data: "pair_EUR/USD"}},
		{"", UnknownEvent{Chat: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			ev := ParseCallback(3, 11, tt.data)
			assert.Equal(t, tt.want, ev)
			assert.Equal(t, int64(3), ev.ChatID())
		})
	}
}
