// Package conversation maps inbound events onto the per-user state machine.
//
// Decide is a pure function of the configured flow, the current session and
// the event. It performs no I/O; the dispatcher executes the returned Action
// and stores Decision.Next.
package conversation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pricebot/internal/models"
	"pricebot/internal/quote"
)

// Flow selects the shape of the quote dialogue
type Flow string

const (
	// FlowSimple asks for the amount only
	FlowSimple Flow = "simple"
	// FlowTwoStep asks for the amount and then the number of items
	FlowTwoStep Flow = "two_step"
)

// ParseFlow validates a flow name. An empty name selects FlowSimple.
func ParseFlow(s string) (Flow, error) {
	switch Flow(strings.ToLower(strings.TrimSpace(s))) {
	case "", FlowSimple:
		return FlowSimple, nil
	case FlowTwoStep:
		return FlowTwoStep, nil
	}
	return "", fmt.Errorf("unknown quote flow %q", s)
}

// Kind is the variant of an inbound event
type Kind int

const (
	KindCommand Kind = iota + 1
	KindButton
	KindText
	KindAdminReply
)

// Intent is what a command or a button asks for
type Intent int

const (
	IntentNone Intent = iota
	IntentStart
	IntentCalc
	IntentAsk
	IntentInfo
	IntentCancel
	IntentStats
	IntentLast
)

var commandIntents = map[string]Intent{
	"start":  IntentStart,
	"calc":   IntentCalc,
	"ask":    IntentAsk,
	"help":   IntentInfo,
	"info":   IntentInfo,
	"cancel": IntentCancel,
	"stats":  IntentStats,
	"last":   IntentLast,
}

// Reply keyboard labels. Telegram delivers a button press as a text message
// carrying the label.
const (
	LabelCalc   = "🧮 Рассчитать стоимость"
	LabelAsk    = "❓ Задать вопрос"
	LabelInfo   = "ℹ️ Доставка и оплата"
	LabelCancel = "✖️ Отмена"
)

var buttonIntents = map[string]Intent{
	LabelCalc:   IntentCalc,
	LabelAsk:    IntentAsk,
	LabelInfo:   IntentInfo,
	LabelCancel: IntentCancel,
}

// CommandIntent returns the intent of a bot command given without the slash
func CommandIntent(name string) Intent {
	return commandIntents[strings.ToLower(name)]
}

// ButtonIntent returns the intent of a keyboard label, or IntentNone
func ButtonIntent(label string) Intent {
	return buttonIntents[strings.TrimSpace(label)]
}

// Event is a classified inbound update
type Event struct {
	Kind   Kind
	Intent Intent
	Name   string // command name, without the slash
	Text   string
	Ref    int  // message id the admin replied to
	Admin  bool // sent from the admin chat
}

// Command builds a command event
func Command(name string, args string) Event {
	return Event{Kind: KindCommand, Intent: CommandIntent(name), Name: name, Text: args}
}

// Button builds a button press event
func Button(label string) Event {
	return Event{Kind: KindButton, Intent: ButtonIntent(label), Text: label}
}

// Callback builds a button event from inline keyboard data, which carries a command name
func Callback(data string) Event {
	return Event{Kind: KindButton, Intent: CommandIntent(data), Text: data}
}

// Text builds a free text event. Non-text messages carry an empty text.
func Text(text string) Event {
	return Event{Kind: KindText, Text: text}
}

// AdminReply builds an event for an admin message replying to message ref
func AdminReply(ref int, text string) Event {
	return Event{Kind: KindAdminReply, Ref: ref, Text: text, Admin: true}
}

// Action is the side effect the dispatcher must perform
type Action int

const (
	ActionNone Action = iota
	ActionWelcome
	ActionPromptChoose
	ActionPromptAmount
	ActionPromptItemCount
	ActionPromptQuestion
	ActionInvalidAmount
	ActionInvalidItemCount
	ActionQuote
	ActionRelayQuestion
	ActionResolveAnswer
	ActionInfo
	ActionCancel
	ActionStats
	ActionLast
)

var actionNames = map[Action]string{
	ActionNone:             "none",
	ActionWelcome:          "welcome",
	ActionPromptChoose:     "prompt_choose",
	ActionPromptAmount:     "prompt_amount",
	ActionPromptItemCount:  "prompt_item_count",
	ActionPromptQuestion:   "prompt_question",
	ActionInvalidAmount:    "invalid_amount",
	ActionInvalidItemCount: "invalid_item_count",
	ActionQuote:            "quote",
	ActionRelayQuestion:    "relay_question",
	ActionResolveAnswer:    "resolve_answer",
	ActionInfo:             "info",
	ActionCancel:           "cancel",
	ActionStats:            "stats",
	ActionLast:             "last",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Decision is the outcome of Decide
type Decision struct {
	Action Action
	Next   models.Mode

	// Amount is the parsed amount for ActionQuote and ActionPromptItemCount
	Amount decimal.Decimal
	// Count is the item count for a two-step ActionQuote, zero otherwise
	Count int
	// Err carries the parse error for the invalid input actions
	Err error
}

// Decide maps (flow, session, event) to an action and the next mode.
// The session must already have the inactivity timeout applied.
func Decide(flow Flow, sess models.Session, ev Event) Decision {
	switch ev.Kind {
	case KindAdminReply:
		return Decision{Action: ActionResolveAnswer, Next: sess.Mode}
	case KindCommand, KindButton:
		if d, ok := decideIntent(ev); ok {
			return d
		}
		if ev.Kind == KindCommand {
			// unknown or forbidden command, keep whatever the user was doing
			return Decision{Action: ActionPromptChoose, Next: sess.Mode}
		}
	}

	switch sess.Mode {
	case models.ModeAwaitingAmount:
		amount, err := quote.ParseAmount(ev.Text)
		if err != nil {
			return Decision{Action: ActionInvalidAmount, Next: models.ModeAwaitingAmount, Err: err}
		}
		if flow == FlowTwoStep {
			return Decision{Action: ActionPromptItemCount, Next: models.ModeAwaitingItemCount, Amount: amount}
		}
		return Decision{Action: ActionQuote, Next: models.ModeIdle, Amount: amount}

	case models.ModeAwaitingItemCount:
		if sess.PendingAmount == nil {
			return Decision{Action: ActionPromptAmount, Next: models.ModeAwaitingAmount}
		}
		count, err := quote.ParseItemCount(ev.Text)
		if err != nil {
			return Decision{Action: ActionInvalidItemCount, Next: models.ModeAwaitingItemCount, Amount: *sess.PendingAmount, Err: err}
		}
		return Decision{Action: ActionQuote, Next: models.ModeIdle, Amount: *sess.PendingAmount, Count: count}

	case models.ModeAwaitingQuestion:
		return Decision{Action: ActionRelayQuestion, Next: models.ModeIdle}
	}

	return Decision{Action: ActionPromptChoose, Next: models.ModeIdle}
}

// decideIntent handles commands and buttons. They interrupt any conversation in progress.
func decideIntent(ev Event) (Decision, bool) {
	switch ev.Intent {
	case IntentStart:
		return Decision{Action: ActionWelcome, Next: models.ModeIdle}, true
	case IntentCalc:
		return Decision{Action: ActionPromptAmount, Next: models.ModeAwaitingAmount}, true
	case IntentAsk:
		return Decision{Action: ActionPromptQuestion, Next: models.ModeAwaitingQuestion}, true
	case IntentInfo:
		return Decision{Action: ActionInfo, Next: models.ModeIdle}, true
	case IntentCancel:
		return Decision{Action: ActionCancel, Next: models.ModeIdle}, true
	case IntentStats:
		if ev.Admin {
			return Decision{Action: ActionStats, Next: models.ModeIdle}, true
		}
	case IntentLast:
		if ev.Admin {
			return Decision{Action: ActionLast, Next: models.ModeIdle}, true
		}
	}
	return Decision{}, false
}
