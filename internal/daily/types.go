// Package daily models the per-day snapshot of a user's personal data that
// the frontend sends with every chat request.
//
// Records are loosely typed on the wire: any field may be missing, null, or
// of an unexpected JSON type. Decoding never fails because of a single odd
// field; such values fall back to the field's zero value and accessor methods
// supply the documented defaults.
package daily

// Context is one day of user data. Sequence order is preserved from input.
type Context struct {
	Date     string         `json:"date"`
	Tasks    []Task         `json:"tasks"`
	Finances []FinanceEntry `json:"finances"`
	Money    []FinanceEntry `json:"money"`
	Workouts []Workout      `json:"workouts"`
	Diary    []DiaryEntry   `json:"diary"`
	Events   []Event        `json:"events"`
	Notes    []Note         `json:"notes"`
}

// FinanceRecords returns the finance list, accepting either the "finances"
// field or its older "money" alias. "finances" wins when both are non-empty.
func (c Context) FinanceRecords() []FinanceEntry {
	if len(c.Finances) > 0 {
		return c.Finances
	}
	return c.Money
}

type Task struct {
	ID        Text `json:"id"`
	Title     Text `json:"title"`
	Notes     Text `json:"notes"`
	Priority  Text `json:"priority"`
	Completed Flag `json:"completed"`
	Done      Flag `json:"done"`
	Tags      Tags `json:"tags"`
	DueDate   Text `json:"dueDate"`
}

// IsDone reports completion under either of the two field names clients use.
func (t Task) IsDone() bool {
	return bool(t.Completed) || bool(t.Done)
}

func (t Task) PriorityOr(def string) string { return t.Priority.Or(def) }
func (t Task) TitleOr(def string) string    { return t.Title.Or(def) }

const (
	Income  = "income"
	Expense = "expense"
)

type FinanceEntry struct {
	ID        Text   `json:"id"`
	Date      Text   `json:"date"`
	Type      Text   `json:"type"`
	Amount    Number `json:"amount"`
	Category  Text   `json:"category"`
	AccountID Text   `json:"accountId"`
	Note      Text   `json:"note"`
}

type Workout struct {
	ID        Text       `json:"id"`
	Date      Text       `json:"date"`
	Title     Text       `json:"title"`
	Notes     Text       `json:"notes"`
	Exercises []Exercise `json:"exercises"`
}

// Exercise is the flattened per-exercise summary: number of sets plus the
// reps and weight of the first set.
type Exercise struct {
	Name   Text   `json:"name"`
	Sets   Number `json:"sets"`
	Reps   Number `json:"reps"`
	Weight Number `json:"weight"`
}

type DiaryEntry struct {
	ID      Text `json:"id"`
	Date    Text `json:"date"`
	Mood    Text `json:"mood"`
	Content Text `json:"content"`
	Tags    Tags `json:"tags"`
}

type Event struct {
	ID          Text   `json:"id"`
	Date        Text   `json:"date"`
	Time        Text   `json:"time"`
	Title       Text   `json:"title"`
	Description Text   `json:"description"`
	Location    Text   `json:"location"`
	Duration    Number `json:"duration"`
	Tags        Tags   `json:"tags"`
}

type Note struct {
	ID      Text `json:"id"`
	Title   Text `json:"title"`
	Content Text `json:"content"`
	Folder  Text `json:"folder"`
	Tags    Tags `json:"tags"`
}
