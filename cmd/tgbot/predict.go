package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/Alias1177/TokenPredictor/internal/interval"
	"github.com/Alias1177/TokenPredictor/internal/prediction"
)

var predictCmd = &cobra.Command{
	Use:   "predict SYMBOL DATE [KIND]",
	Short: "Query the model once, without Telegram",
	Long: `Translates DATE (YYYY-MM-DD) into an interval and asks the model for the
price of SYMBOL. KIND (open, high, low or close) sends the three-element
request used by the ohlc flow.`,
	Example: `  tgbot predict ETH 2024-01-27
  tgbot predict wbtc 2024-02-10 high`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireAPIEndpoint(); err != nil {
		return err
	}
	inst, ok := catalog.Default().Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown token %q", args[0])
	}

	translator, err := newTranslator(cfg)
	if err != nil {
		return err
	}
	iv, err := translator.ToInterval(args[1])
	if err != nil {
		return err
	}
	date, _ := interval.ParseDate(args[1])

	req := prediction.Request{
		SignatureName:   cfg.SignatureName,
		Interval:        iv,
		InstrumentIndex: inst.Index,
	}
	label := "closing"
	if len(args) == 3 {
		kind, ok := prediction.ParsePriceKind(args[2])
		if !ok {
			return fmt.Errorf("unknown price kind %q", args[2])
		}
		req.PriceKind = &kind
		label = kind.String()
	}

	price, err := newPredictionClient(cfg).Predict(cmd.Context(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Predicted %s price for %s on %s: %s\n",
		label, inst.Symbol, date.Format(interval.DateLayout), strconv.FormatFloat(price, 'f', -1, 64))
	return nil
}
