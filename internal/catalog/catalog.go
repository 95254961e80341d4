package catalog

import (
	"fmt"
	"strings"
)

// Instrument is a token the prediction model was trained on.
// Index is the model's encoding of the token and must not change while the
// same model is deployed.
type Instrument struct {
	Symbol string `json:"symbol"`
	Index  int    `json:"index"`
}

// Catalog is an immutable, ordered symbol -> index table
type Catalog struct {
	ordered []Instrument
	bySym   map[string]Instrument
}

// New builds a catalog, keeping the given order for menus
func New(instruments []Instrument) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]Instrument, 0, len(instruments)),
		bySym:   make(map[string]Instrument, len(instruments)),
	}
	for _, inst := range instruments {
		if inst.Symbol == "" {
			return nil, fmt.Errorf("empty symbol for index %d", inst.Index)
		}
		if _, exists := c.bySym[inst.Symbol]; exists {
			return nil, fmt.Errorf("duplicate symbol %q", inst.Symbol)
		}
		c.bySym[inst.Symbol] = inst
		c.ordered = append(c.ordered, inst)
	}
	return c, nil
}

// Lookup finds an instrument by symbol. The second return value reports
// presence; index 0 is a valid instrument.
func (c *Catalog) Lookup(symbol string) (Instrument, bool) {
	inst, ok := c.bySym[strings.ToUpper(strings.TrimSpace(symbol))]
	return inst, ok
}

// List returns the instruments in catalog order
func (c *Catalog) List() []Instrument {
	out := make([]Instrument, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of instruments
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// deployed is the encoding used when the current model was fit
var deployed = []Instrument{
	{"WBTC", 0}, {"WETH", 1}, {"USDC", 2}, {"USDT", 3}, {"DAI", 4}, {"LINK", 5},
	{"AAVE", 6}, {"STETH", 7}, {"WSTETH", 8}, {"ETH", 9}, {"FRAX", 10}, {"RETH", 11},
	{"YFI", 12}, {"MIM", 13}, {"3CRV", 14}, {"ALCX", 15}, {"MKR", 16}, {"STMATIC", 17},
	{"WAVAX", 18}, {"UNI", 19}, {"COMP", 20}, {"GNO", 21}, {"COW", 22}, {"ALUSD", 23},
	{"SAVAX", 24}, {"WMATIC", 25}, {"CVX", 26}, {"WOO", 27}, {"TUSD", 28}, {"FRXETH", 29},
}

// Default returns the catalog of the deployed model
func Default() *Catalog {
	c, err := New(deployed)
	if err != nil {
		panic(err)
	}
	return c
}
