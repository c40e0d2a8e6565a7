package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"pricebot/internal/conversation"
	"pricebot/internal/models"
	"pricebot/internal/quote"
)

const (
	welcomeText = "Привет! Я помогу тебе рассчитать примерную стоимость заказа из Германии 🇩🇪\n\n" +
		"Нажми «🧮 Рассчитать стоимость» и введи сумму заказа в евро, " +
		"или «❓ Задать вопрос», чтобы написать менеджеру."

	chooseActionText = "Выбери действие на клавиатуре ниже 👇"

	amountPromptText    = "Пожалуйста, введи стоимость товара или общую сумму заказа в евро.\n\nНапример: 150"
	invalidAmountText   = "Пожалуйста, введи только число — сумму заказа в евро. Например: 150"
	itemCountPromptText = "Сколько вещей в заказе? Введи число, например: 3"
	invalidItemsText    = "Пожалуйста, введи количество вещей целым числом больше нуля. Например: 3"

	questionPromptText = "Напиши свой вопрос одним сообщением, и я передам его менеджеру ✍️"
	questionSentText   = "Спасибо! Вопрос передан менеджеру, ответ придёт сюда же 🙌"
	questionFailedText = "Не получилось отправить вопрос. Попробуй ещё раз чуть позже."
	answerPrefixText   = "💬 Ответ менеджера:\n\n"
	answerSentText     = "✅ Ответ отправлен пользователю."
	answerFailedText   = "⚠️ Не удалось доставить ответ: %v"

	cancelText  = "Хорошо, отменил. Чем ещё могу помочь?"
	errorText   = "Произошла ошибка при обработке запроса. Попробуй ещё раз."
	noStatsText = "Журнал расчётов не подключён."

	infoText = "ℹ️ Доставка и оплата\n\n" +
		"• Стоимость считается по курсу ЦБ с учётом комиссии и уже включает доставку до Краснодара.\n" +
		"• Крупные заказы (6+ вещей, обувь, верхняя одежда, техника) — возможна доплата за доставку: 1000 ₽/кг.\n" +
		"• Оплата после подтверждения заказа менеджером.\n\n" +
		"Остались вопросы? Нажми «❓ Задать вопрос»."

	includedNoticeText  = "⚠️ В эту сумму уже включена доставка до Краснодара."
	surchargeNoticeText = "❗️Если заказ крупный (6+ вещей, обувь, верхняя одежда, техника) — возможна доплата за доставку: 1000 ₽/кг.\n" +
		"Уточни у менеджера при оформлении."
	largeOrderNoticeText = "❗️Заказ крупный (%d шт.) — возможна доплата за доставку: 1000 ₽/кг.\n" +
		"Уточни у менеджера при оформлении."
)

// mainKeyboard is the reply keyboard shown in idle mode
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(conversation.LabelCalc),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(conversation.LabelAsk),
			tgbotapi.NewKeyboardButton(conversation.LabelInfo),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// cancelKeyboard is shown while the bot waits for input
func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(conversation.LabelCancel),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// QuoteText renders a quote as the bot sends it. itemCount is zero for the simple flow.
func QuoteText(q quote.Quote, itemCount int) string {
	var text strings.Builder
	fmt.Fprintf(&text, "📦 Сумма заказа: %s €\n", q.Amount.String())
	if itemCount > 0 {
		fmt.Fprintf(&text, "🛍 Количество вещей: %d\n", itemCount)
	}
	fmt.Fprintf(&text, "💶 Текущий курс: %s ₽\n", q.Rate.StringFixed(2))
	fmt.Fprintf(&text, "➡️ Итоговая стоимость: %s ₽\n\n", formatRub(q.Total))

	switch quote.NoticeFor(itemCount) {
	case quote.NoticeUnknownSize:
		text.WriteString(includedNoticeText + "\n" + surchargeNoticeText)
	case quote.NoticeIncluded:
		text.WriteString(includedNoticeText)
	case quote.NoticeSurcharge:
		text.WriteString(includedNoticeText + "\n")
		fmt.Fprintf(&text, largeOrderNoticeText, itemCount)
	}
	return text.String()
}

func statsText(stats models.Stats, days, pending int) string {
	return fmt.Sprintf("📊 Статистика за %d дн.\n\nРасчётов: %d\nВопросов: %d\nСумма расчётов: %s ₽\nОжидают ответа: %d",
		days, stats.Quotes, stats.Questions, formatRub(stats.TotalSum), pending)
}

func lastQuotesText(quotes []models.QuoteRecord) string {
	if len(quotes) == 0 {
		return "Расчётов пока не было."
	}

	var text strings.Builder
	text.WriteString("Последние расчёты:\n\n")
	for i, q := range quotes {
		fmt.Fprintf(&text, "%d. %s — %s € → %s ₽ (id %d)\n",
			i+1,
			q.CreatedAt.Format("02.01 15:04"),
			q.Amount.String(),
			formatRub(q.Total),
			q.UserID)
	}
	return text.String()
}

// formatRub renders a whole amount the way ru-RU locales do: digit groups of three
// separated by no-break spaces, and no grouping for four digits or fewer ("1500", "19 500").
func formatRub(d decimal.Decimal) string {
	whole := d.Round(0)
	digits := whole.Abs().String()

	var out strings.Builder
	if whole.IsNegative() {
		out.WriteByte('-')
	}
	if len(digits) <= 4 {
		out.WriteString(digits)
		return out.String()
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out.WriteRune('\u00a0')
		}
		out.WriteRune(r)
	}
	return out.String()
}
