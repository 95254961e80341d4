package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Alias1177/TokenPredictor/internal/catalog"
	"github.com/Alias1177/TokenPredictor/internal/interval"
	"github.com/Alias1177/TokenPredictor/internal/prediction"
	"github.com/Alias1177/TokenPredictor/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Flow selects which questions are asked before dispatch
type Flow string

const (
	// FlowClose asks token then date and predicts the closing price
	FlowClose Flow = "close"
	// FlowOHLC asks token, price kind, then date
	FlowOHLC Flow = "ohlc"
)

// ParseFlow validates a configured flow name
func ParseFlow(s string) (Flow, error) {
	switch Flow(s) {
	case FlowClose, FlowOHLC:
		return Flow(s), nil
	default:
		return "", fmt.Errorf("unknown flow %q (want %q or %q)", s, FlowClose, FlowOHLC)
	}
}

// Messenger delivers outbound chat actions
type Messenger interface {
	SendText(chatID int64, text string) error
	SendKeyboard(chatID int64, text string, kb Keyboard) error
	EditKeyboard(chatID int64, messageID int, kb Keyboard) error
	PromptReply(chatID int64, text string) error
	AnswerCallback(callbackID string) error
}

// Predictor scores a prediction request
type Predictor interface {
	Predict(ctx context.Context, req prediction.Request) (float64, error)
}

// Options tune a Controller
type Options struct {
	Flow          Flow
	SignatureName string
	// Now is the clock used to open the calendar; defaults to time.Now
	Now func() time.Time
}

// Controller is the conversation state machine. It owns no state itself:
// every event re-reads the chat's record from the store.
type Controller struct {
	catalog    *catalog.Catalog
	translator interval.Translator
	predictor  Predictor
	store      session.Store
	out        Messenger
	opts       Options
	logger     zerolog.Logger
}

// NewController wires the state machine to its collaborators
func NewController(
	cat *catalog.Catalog,
	translator interval.Translator,
	predictor Predictor,
	store session.Store,
	out Messenger,
	opts Options,
) *Controller {
	if opts.Flow == "" {
		opts.Flow = FlowClose
	}
	if opts.SignatureName == "" {
		opts.SignatureName = prediction.DefaultSignature
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		catalog:    cat,
		translator: translator,
		predictor:  predictor,
		store:      store,
		out:        out,
		opts:       opts,
		logger:     log.With().Str("component", "controller").Logger(),
	}
}

// Handle processes one inbound event. A returned error means the chat could
// not be served (store failure); the user has already been told.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	chatID := ev.ChatID()

	switch e := ev.(type) {
	case CommandEvent:
		return c.handleCommand(ctx, e)
	case TextEvent:
		return c.handleText(ctx, e)
	case InstrumentEvent:
		return c.selectInstrument(ctx, chatID, e.Symbol)
	case PriceKindEvent:
		return c.selectPriceKind(ctx, chatID, e.Kind)
	case DateEvent:
		return c.selectDate(ctx, chatID, e.Date)
	case CalendarNavEvent:
		return c.navigateCalendar(ctx, e)
	case NoopEvent:
		return nil
	case UnknownEvent:
		c.logger.Debug().Int64("chat_id", chatID).Str("data", e.Data).Msg("Unclassified input")
		c.send(chatID, msgInvalidInput)
		return nil
	default:
		c.logger.Error().Int64("chat_id", chatID).Str("type", fmt.Sprintf("%T", ev)).Msg("Unhandled event type")
		c.send(chatID, msgInvalidInput)
		return nil
	}
}

func (c *Controller) handleCommand(ctx context.Context, e CommandEvent) error {
	switch e.Name {
	case "start", "predict", "command1":
		return c.startCycle(ctx, e.Chat)
	case "cancel":
		if err := c.store.Clear(ctx, e.Chat); err != nil {
			return c.storeFailure(e.Chat, err)
		}
		c.send(e.Chat, msgCancelled)
		return nil
	case "help":
		c.send(e.Chat, c.helpText())
		return nil
	default:
		c.send(e.Chat, fmt.Sprintf(msgUnknownCommand, e.Name))
		return nil
	}
}

func (c *Controller) handleText(ctx context.Context, e TextEvent) error {
	st, err := c.store.Get(ctx, e.Chat)
	if err != nil {
		return c.storeFailure(e.Chat, err)
	}
	c.logger.Debug().Int64("chat_id", e.Chat).Str("stage", string(st.CurrentStage())).Msg("Text received")

	switch st.CurrentStage() {
	case session.StageAwaitingInstrument:
		return c.selectInstrument(ctx, e.Chat, e.Text)
	case session.StageAwaitingPriceKind:
		return c.selectPriceKind(ctx, e.Chat, e.Text)
	case session.StageAwaitingDate:
		return c.selectDate(ctx, e.Chat, e.Text)
	case session.StageDispatching:
		c.send(e.Chat, msgStartOver)
		return nil
	default:
		c.send(e.Chat, msgInvalidInput)
		return nil
	}
}

// startCycle abandons any pending prompt and asks for a token
func (c *Controller) startCycle(ctx context.Context, chatID int64) error {
	_, err := c.store.Update(ctx, chatID, func(st *session.State) error {
		st.Reset()
		st.Stage = session.StageAwaitingInstrument
		return nil
	})
	if err != nil {
		return c.storeFailure(chatID, err)
	}
	c.sendKeyboard(chatID, msgSelectToken, instrumentKeyboard(c.catalog.List()))
	return nil
}

func (c *Controller) selectInstrument(ctx context.Context, chatID int64, symbol string) error {
	inst, ok := c.catalog.Lookup(symbol)
	if !ok {
		c.sendKeyboard(chatID, fmt.Sprintf(msgUnknownToken, symbol), instrumentKeyboard(c.catalog.List()))
		return nil
	}

	busy := false
	_, err := c.store.Update(ctx, chatID, func(st *session.State) error {
		busy = false
		if st.CurrentStage() == session.StageDispatching {
			busy = true
			return nil
		}
		// choosing a token again restarts the questions after it
		selected := inst
		st.Instrument = &selected
		st.PriceKind = nil
		st.Date = nil
		st.Stage = c.stageAfterInstrument()
		return nil
	})
	if err != nil {
		return c.storeFailure(chatID, err)
	}
	if busy {
		c.send(chatID, msgStartOver)
		return nil
	}

	c.logger.Debug().Int64("chat_id", chatID).Str("symbol", inst.Symbol).Msg("Token selected")
	if c.opts.Flow == FlowOHLC {
		c.sendKeyboard(chatID, fmt.Sprintf(msgSelectPriceKind, inst.Symbol), priceKindKeyboard())
		return nil
	}
	c.promptDate(chatID, inst.Symbol)
	return nil
}

func (c *Controller) stageAfterInstrument() session.Stage {
	if c.opts.Flow == FlowOHLC {
		return session.StageAwaitingPriceKind
	}
	return session.StageAwaitingDate
}

func (c *Controller) selectPriceKind(ctx context.Context, chatID int64, label string) error {
	if c.opts.Flow != FlowOHLC {
		c.send(chatID, msgInvalidInput)
		return nil
	}
	kind, ok := prediction.ParsePriceKind(label)
	if !ok {
		c.sendKeyboard(chatID, msgUnknownPriceKind, priceKindKeyboard())
		return nil
	}

	missing := false
	var symbol string
	_, err := c.store.Update(ctx, chatID, func(st *session.State) error {
		missing = false
		if st.Instrument == nil || st.CurrentStage() != session.StageAwaitingPriceKind {
			missing = true
			return nil
		}
		selected := kind
		st.PriceKind = &selected
		st.Date = nil
		st.Stage = session.StageAwaitingDate
		symbol = st.Instrument.Symbol
		return nil
	})
	if err != nil {
		return c.storeFailure(chatID, err)
	}
	if missing {
		c.send(chatID, msgStartOver)
		return nil
	}

	c.promptDate(chatID, fmt.Sprintf("%s (%s)", symbol, kind))
	return nil
}

// promptDate sends the calendar and a force-reply prompt; either answer is
// accepted.
func (c *Controller) promptDate(chatID int64, selection string) {
	month := c.opts.Now().UTC()
	if month.Before(c.translator.Reference) {
		month = c.translator.Reference
	}
	c.sendKeyboard(chatID, fmt.Sprintf(msgSelectDate, selection), calendarKeyboard(month, c.translator.Reference))
	if err := c.out.PromptReply(chatID, fmt.Sprintf(msgReplyDate, c.translator.ReferenceString())); err != nil {
		c.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply prompt")
	}
}

func (c *Controller) navigateCalendar(ctx context.Context, e CalendarNavEvent) error {
	month, err := parseMonth(e.Month)
	if err != nil {
		c.send(e.Chat, msgInvalidInput)
		return nil
	}
	st, err := c.store.Get(ctx, e.Chat)
	if err != nil {
		return c.storeFailure(e.Chat, err)
	}
	if st.CurrentStage() != session.StageAwaitingDate {
		c.send(e.Chat, msgStartOver)
		return nil
	}
	if err := c.out.EditKeyboard(e.Chat, e.MessageID, calendarKeyboard(month, c.translator.Reference)); err != nil {
		c.logger.Error().Err(err).Int64("chat_id", e.Chat).Msg("Failed to update calendar")
	}
	return nil
}

// dateOutcome is what selectDate decided inside the store transaction
type dateOutcome int

const (
	dateMissingFields dateOutcome = iota
	dateInvalid
	dateAccepted
)

func (c *Controller) selectDate(ctx context.Context, chatID int64, date string) error {
	var (
		outcome  dateOutcome
		dateErr  error
		snapshot session.State
		req      prediction.Request
	)

	_, err := c.store.Update(ctx, chatID, func(st *session.State) error {
		outcome, dateErr = dateMissingFields, nil
		if st.CurrentStage() == session.StageDispatching || !c.complete(*st) {
			return nil
		}

		iv, err := c.translator.ToInterval(date)
		if err != nil {
			outcome, dateErr = dateInvalid, err
			return nil
		}

		parsed, _ := interval.ParseDate(date)
		normalized := parsed.Format(interval.DateLayout)
		st.Date = &normalized
		st.Stage = session.StageDispatching

		outcome = dateAccepted
		snapshot = *st
		req = prediction.Request{
			SignatureName:   c.opts.SignatureName,
			Interval:        iv,
			InstrumentIndex: st.Instrument.Index,
		}
		if c.opts.Flow == FlowOHLC {
			kind := *st.PriceKind
			req.PriceKind = &kind
		}
		return nil
	})
	if err != nil {
		return c.storeFailure(chatID, err)
	}

	switch outcome {
	case dateMissingFields:
		c.send(chatID, msgStartOver)
	case dateInvalid:
		c.send(chatID, c.dateErrorText(date, dateErr))
	case dateAccepted:
		c.dispatch(ctx, chatID, snapshot, req)
	}
	return nil
}

// complete reports whether every field the flow asks for before the date
// is present
func (c *Controller) complete(st session.State) bool {
	if st.Instrument == nil {
		return false
	}
	if c.opts.Flow == FlowOHLC && st.PriceKind == nil {
		return false
	}
	return true
}

func (c *Controller) dateErrorText(input string, err error) string {
	switch {
	case errors.Is(err, interval.ErrBeforeReference):
		return fmt.Sprintf(msgDateBeforeReference, c.translator.ReferenceString())
	default:
		example := c.translator.Reference.AddDate(0, 0, c.translator.Days).Format(interval.DateLayout)
		return fmt.Sprintf(msgDateInvalid, input, example)
	}
}

// dispatch calls the model and always clears the chat afterwards
func (c *Controller) dispatch(ctx context.Context, chatID int64, st session.State, req prediction.Request) {
	requestID := uuid.NewString()
	ctx = prediction.WithRequestID(ctx, requestID)
	logger := c.logger.With().
		Int64("chat_id", chatID).
		Str("request_id", requestID).
		Str("symbol", st.Instrument.Symbol).
		Str("date", *st.Date).
		Logger()

	logger.Info().Int("interval", req.Interval).Int("index", req.InstrumentIndex).Msg("Dispatching prediction")
	price, err := c.predictor.Predict(ctx, req)

	// a shutdown must not leave the chat stuck in Dispatching
	if cerr := c.store.Clear(context.WithoutCancel(ctx), chatID); cerr != nil {
		logger.Error().Err(cerr).Msg("Failed to reset conversation after dispatch")
	}

	if err != nil {
		logger.Error().Err(err).Msg("Prediction failed")
		c.send(chatID, msgPredictionFailed)
		return
	}

	c.send(chatID, fmt.Sprintf(msgPrediction, c.priceLabel(st), st.Instrument.Symbol, *st.Date, formatPrice(price)))
}

func (c *Controller) priceLabel(st session.State) string {
	if c.opts.Flow == FlowOHLC && st.PriceKind != nil {
		return st.PriceKind.String()
	}
	return "closing"
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Controller) helpText() string {
	if c.opts.Flow == FlowOHLC {
		return msgHelp + "\n" + msgHelpOHLC
	}
	return msgHelp
}

func (c *Controller) storeFailure(chatID int64, err error) error {
	c.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Conversation store failure")
	c.send(chatID, msgTryAgain)
	return fmt.Errorf("chat %d: %w", chatID, err)
}

func (c *Controller) send(chatID int64, text string) {
	if err := c.out.SendText(chatID, text); err != nil {
		c.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func (c *Controller) sendKeyboard(chatID int64, text string, kb Keyboard) {
	if err := c.out.SendKeyboard(chatID, text, kb); err != nil {
		c.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send keyboard")
	}
}
