package bot

import (
	"testing"
	"time"

	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reference = time.Date(2024, 1, 23, 0, 0, 0, 0, time.UTC)

func TestCalendarReferenceMonth(t *testing.T) {
	kb := calendarKeyboard(reference, reference)

	header := kb[0]
	require.Len(t, header, 3)
	assert.Equal(t, Button{Label: fillerLabel, Data: dataNoop}, header[0], "no way back past the reference month")
	assert.Equal(t, "January 2024", header[1].Label)
	assert.Equal(t, "cal:2024-02", header[2].Data)

	assert.Equal(t, "Mo", kb[1][0].Label)
	assert.Equal(t, "Su", kb[1][6].Label)

	for _, row := range kb[2:] {
		assert.Len(t, row, 7)
	}
	// the 1st is a Monday but lies before the reference date
	assert.Equal(t, Button{Label: fillerLabel, Data: dataNoop}, kb[2][0])

	var selectable []string
	for _, row := range kb[2:] {
		for _, b := range row {
			if b.Data != dataNoop {
				selectable = append(selectable, b.Data)
			}
		}
	}
	require.Len(t, selectable, 9)
	assert.Equal(t, "date:2024-01-23", selectable[0])
	assert.Equal(t, "date:2024-01-31", selectable[8])
}

func TestCalendarLaterMonth(t *testing.T) {
	kb := calendarKeyboard(time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), reference)

	assert.Equal(t, "cal:2024-01", kb[0][0].Data)
	assert.Equal(t, "February 2024", kb[0][1].Label)
	assert.Equal(t, "cal:2024-03", kb[0][2].Data)

	// 1 February 2024 is a Thursday
	firstWeek := kb[2]
	assert.Equal(t, fillerLabel, firstWeek[2].Label)
	assert.Equal(t, Button{Label: "1", Data: "date:2024-02-01"}, firstWeek[3])

	days := 0
	for _, row := range kb[2:] {
		for _, b := range row {
			if b.Data != dataNoop {
				days++
			}
		}
	}
	assert.Equal(t, 29, days)
}

func TestCalendarClampsToReference(t *testing.T) {
	kb := calendarKeyboard(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), reference)
	assert.Equal(t, "January 2024", kb[0][1].Label)
}

func TestInstrumentKeyboard(t *testing.T) {
	kb := instrumentKeyboard([]catalog.Instrument{
		{Symbol: "WBTC", Index: 0},
		{Symbol: "ETH", Index: 9},
		{Symbol: "UNI", Index: 19},
		{Symbol: "LINK", Index: 5},
	})

	require.Len(t, kb, 2)
	assert.Len(t, kb[0], 3)
	assert.Equal(t, Button{Label: "WBTC", Data: "token:WBTC"}, kb[0][0])
	assert.Equal(t, Button{Label: "LINK", Data: "token:LINK"}, kb[1][0])
}

func TestPriceKindKeyboard(t *testing.T) {
	kb := priceKindKeyboard()

	require.Len(t, kb, 2)
	assert.Equal(t, Button{Label: "Open", Data: "priceType:open"}, kb[0][0])
	assert.Equal(t, Button{Label: "Close", Data: "priceType:close"}, kb[1][1])
}
