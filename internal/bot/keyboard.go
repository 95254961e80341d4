package bot

import (
	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/Alias1177/TokenPredictor/internal/prediction"
)

const tokensPerRow = 3

// Button is an inline button; Data comes back in the callback
type Button struct {
	Label string
	Data  string
}

// Keyboard is a grid of inline buttons, row by row
type Keyboard [][]Button

// Buttons flattens the grid in display order
func (k Keyboard) Buttons() []Button {
	var out []Button
	for _, row := range k {
		out = append(out, row...)
	}
	return out
}

func instrumentKeyboard(instruments []catalog.Instrument) Keyboard {
	var keyboard Keyboard
	var row []Button

	for i, inst := range instruments {
		if i > 0 && i%tokensPerRow == 0 {
			keyboard = append(keyboard, row)
			row = nil
		}
		row = append(row, Button{Label: inst.Symbol, Data: prefixToken + inst.Symbol})
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	return keyboard
}

func priceKindKeyboard() Keyboard {
	var row []Button
	for _, k := range prediction.PriceKinds() {
		row = append(row, Button{Label: priceKindTitle(k), Data: prefixPriceKind + k.String()})
	}
	return Keyboard{row[:2], row[2:]}
}

func priceKindTitle(k prediction.PriceKind) string {
	switch k {
	case prediction.Open:
		return "Open"
	case prediction.High:
		return "High"
	case prediction.Low:
		return "Low"
	case prediction.Close:
		return "Close"
	default:
		return k.String()
	}
}
