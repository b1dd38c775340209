package composer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lastochkinroman/PersonalAssistantLite/internal/daily"
	"github.com/lastochkinroman/PersonalAssistantLite/internal/provider"
)

// MaxNoteRunes is the longest note body rendered in full; longer bodies are
// cut to this many characters followed by an ellipsis.
const MaxNoteRunes = 100

const (
	currency = "₽"

	intro = "Ты — полезный персональный AI-ассистент. У тебя есть данные о дне пользователя.\n\n" +
		"Данные пользователя:"

	instructions = "\n\nИнструкции:\n" +
		"1. Используй данные пользователя для персонализированных ответов\n" +
		"2. Будь дружелюбным и полезным\n" +
		"3. Отвечай кратко и по делу\n" +
		"4. Если данных мало, спроси у пользователя подробности\n" +
		"5. Предлагай конкретные советы и рекомендации\n"

	untitled = "Без названия"
)

// Composer renders a daily.Context into the system prompt sent ahead of the
// conversation. It holds no state; the zero value is ready to use.
type Composer struct{}

// New returns a Composer.
func New() *Composer {
	return &Composer{}
}

// Compose prepends the rendered system prompt to the conversation. The
// caller's messages are copied, never modified.
func (c *Composer) Compose(messages []provider.Message, dc daily.Context) []provider.Message {
	out := make([]provider.Message, 0, len(messages)+1)
	out = append(out, provider.Message{Role: provider.RoleSystem, Content: c.SystemPrompt(dc)})
	out = append(out, messages...)
	return out
}

// SystemPrompt renders dc deterministically. Every section is always
// present; empty sections get a placeholder line.
func (c *Composer) SystemPrompt(dc daily.Context) string {
	var sb strings.Builder
	sb.WriteString(intro)

	date := dc.Date
	if date == "" {
		date = "Не указана"
	}
	fmt.Fprintf(&sb, "\nДата: %s\n\n", date)

	writeTasks(&sb, dc.Tasks)
	writeFinances(&sb, dc.FinanceRecords())
	writeWorkouts(&sb, dc.Workouts)
	writeDiary(&sb, dc.Diary)
	writeEvents(&sb, dc.Events)
	writeNotes(&sb, dc.Notes)

	sb.WriteString(instructions)
	return sb.String()
}

func writeTasks(sb *strings.Builder, tasks []daily.Task) {
	sb.WriteString("### Задачи:\n")
	if len(tasks) == 0 {
		sb.WriteString("Нет задач\n")
		return
	}
	for _, t := range tasks {
		status := "❌ Не выполнено"
		if t.IsDone() {
			status = "✅ Выполнено"
		}
		fmt.Fprintf(sb, "- %s [%s]: %s", status, t.PriorityOr("средний"), t.TitleOr(untitled))
		if t.Notes != "" {
			fmt.Fprintf(sb, " — %s", t.Notes)
		}
		sb.WriteString("\n")
	}
}

// categoryTotals accumulates amounts per category in first-seen order.
type categoryTotals struct {
	order []string
	sums  map[string]daily.Number
}

func (ct *categoryTotals) add(category string, amount daily.Number) {
	if ct.sums == nil {
		ct.sums = make(map[string]daily.Number)
	}
	if _, ok := ct.sums[category]; !ok {
		ct.order = append(ct.order, category)
	}
	ct.sums[category] += amount
}

func (ct *categoryTotals) write(sb *strings.Builder, header string) {
	if len(ct.order) == 0 {
		return
	}
	sb.WriteString(header)
	for _, cat := range ct.order {
		fmt.Fprintf(sb, "  • %s: %s %s\n", cat, ct.sums[cat], currency)
	}
}

// FinanceSummary holds the aggregated totals rendered in the finance section.
type FinanceSummary struct {
	Income  daily.Number
	Expense daily.Number
}

// Balance is income minus expense.
func (f FinanceSummary) Balance() daily.Number {
	return f.Income - f.Expense
}

// SummarizeFinances totals income and expense entries. Entries of any other
// type are ignored.
func SummarizeFinances(entries []daily.FinanceEntry) FinanceSummary {
	var s FinanceSummary
	for _, e := range entries {
		switch string(e.Type) {
		case daily.Income:
			s.Income += e.Amount
		case daily.Expense:
			s.Expense += e.Amount
		}
	}
	return s
}

func writeFinances(sb *strings.Builder, entries []daily.FinanceEntry) {
	sb.WriteString("\n### Финансы (детали):\n")
	if len(entries) == 0 {
		sb.WriteString("Нет финансовых транзакций\n")
		return
	}

	var income, expenses categoryTotals
	for _, e := range entries {
		cat := e.Category.Or("Без категории")
		switch string(e.Type) {
		case daily.Income:
			income.add(cat, e.Amount)
		case daily.Expense:
			expenses.add(cat, e.Amount)
		}
	}
	income.write(sb, "Доходы:\n")
	expenses.write(sb, "Расходы:\n")

	sum := SummarizeFinances(entries)
	fmt.Fprintf(sb, "Итого: доход %s %s, расход %s %s, баланс %s %s\n",
		sum.Income, currency, sum.Expense, currency, sum.Balance(), currency)
}

func writeWorkouts(sb *strings.Builder, workouts []daily.Workout) {
	sb.WriteString("\n### Тренировки:\n")
	if len(workouts) == 0 {
		sb.WriteString("Нет тренировок\n")
		return
	}
	for _, w := range workouts {
		fmt.Fprintf(sb, "- %s", w.Title.Or(untitled))
		if len(w.Exercises) > 0 {
			fmt.Fprintf(sb, " (%d упражнений):\n", len(w.Exercises))
			for _, ex := range w.Exercises {
				fmt.Fprintf(sb, "  • %s: %s подходов, %s повторений, %s кг\n",
					ex.Name.Or("Упражнение"), ex.Sets, ex.Reps, ex.Weight)
			}
		}
		sb.WriteString("\n")
	}
}

func writeDiary(sb *strings.Builder, entries []daily.DiaryEntry) {
	sb.WriteString("\n### Дневник:\n")
	if len(entries) == 0 {
		sb.WriteString("Нет записей в дневнике\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(sb, "- Настроение: %s\n", e.Mood.Or("Не указано"))
		fmt.Fprintf(sb, "  %s\n", e.Content.Or("Нет содержимого"))
		writeTags(sb, e.Tags)
	}
}

func writeEvents(sb *strings.Builder, events []daily.Event) {
	sb.WriteString("\n### События:\n")
	if len(events) == 0 {
		sb.WriteString("Нет событий\n")
		return
	}
	for _, e := range events {
		fmt.Fprintf(sb, "- %s %s\n", e.Time, e.Title.Or(untitled))
		if e.Description != "" {
			fmt.Fprintf(sb, "  %s\n", e.Description)
		}
		if e.Location != "" {
			fmt.Fprintf(sb, "  Местоположение: %s\n", e.Location)
		}
	}
}

func writeNotes(sb *strings.Builder, notes []daily.Note) {
	sb.WriteString("\n### Заметки:\n")
	if len(notes) == 0 {
		sb.WriteString("Нет заметок\n")
		return
	}
	for _, n := range notes {
		fmt.Fprintf(sb, "- %s\n", n.Title.Or(untitled))
		if n.Content != "" {
			fmt.Fprintf(sb, "  %s\n", TruncateNote(string(n.Content)))
		}
		writeTags(sb, n.Tags)
	}
}

func writeTags(sb *strings.Builder, tags daily.Tags) {
	if len(tags) == 0 {
		return
	}
	fmt.Fprintf(sb, "  Теги: %s\n", strings.Join(tags, ", "))
}

// TruncateNote cuts content longer than MaxNoteRunes characters and appends
// "...". Shorter content is returned unchanged.
func TruncateNote(content string) string {
	if utf8.RuneCountInString(content) <= MaxNoteRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:MaxNoteRunes]) + "..."
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
