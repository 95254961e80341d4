package bot

// User-facing texts
const (
	msgSelectToken         = "Select a token:"
	msgUnknownToken        = "Unknown token %q. Please choose one from the list:"
	msgSelectPriceKind     = "Selected %s. Which price should be predicted?"
	msgUnknownPriceKind    = "Unknown price type. Please choose open, high, low or close:"
	msgSelectDate          = "Selected %s. Pick a date:"
	msgReplyDate           = "Or reply with a date in YYYY-MM-DD format (on or after %s)."
	msgDateBeforeReference = "Error: Date must be on or after %s. Please pick another date."
	msgDateInvalid         = "Invalid date %q. Please use the YYYY-MM-DD format, e.g. %s."
	msgPrediction          = "Predicted %s price for %s on %s: %s"
	msgPredictionFailed    = "Sorry, there was an error processing your request. Please try again later with /predict."
	msgStartOver           = "Your selection is incomplete or has expired. Please start over with /predict."
	msgInvalidInput        = "Invalid input. Send /predict to request a price prediction."
	msgUnknownCommand      = "Unknown command /%s. Send /help to see what I can do."
	msgCancelled           = "Cancelled. Send /predict to start again."
	msgTryAgain            = "Something went wrong on our side. Please try again in a moment."
	msgHelp                = "I predict token prices from a trained model.\n\n" +
		"/predict - choose a token and a date\n" +
		"/cancel - abandon the current selection\n" +
		"/help - show this message"
	msgHelpOHLC = "You will also be asked whether to predict the open, high, low or close price."
)
