// Package inventory holds the static trait-pair table and the domain types for
// a single day's self-reflection record.
package inventory

// TraitPair is one row of the inventory table: a self-will pole and a God's-will pole.
type TraitPair struct {
	SelfWill string
	GodsWill string
}

// TraitPairs is the static inventory table. Order is significant: persisted
// answer arrays index into this table. Row HeaderRowIndex is a visual separator
// and never carries an answer.
var TraitPairs = []TraitPair{
	{"Selfish and Self-Seeking", "Interest in Others"},
	{"Dishonest", "Honest"},
	{"Frightened", "Courage"},
	{"Inconsiderate", "Considerate"},
	{"Prideful", "humility-Seek God's Will"},
	{"Greedy", "Giving and Sharing"},
	{"Lustful", "Doing for Others"},
	{"Anger", "Calm"},
	{"Envy", "Grateful"},
	{"Sloth", "Take Action"},
	{"Gluttony", "Moderation"},
	{"Impatient", "Patience"},
	{"Intolerant", "Tolerance"},
	{"Resentment", "Forgiveness"},
	{"Hate", "Love & Concern for Others"},
	{"Harmful Acts", "Good Deeds"},
	{"Self-Pity", "Self-Forgiveness"},
	{"Self-Justification", "Humility-Seek Good's Will"},
	{"Self-Importance", "Modesty"},
	{"Self-Condemnation", "Self-Forgiveness"},
	{"Suspicion", "Trust"},
	{"Doubt", "Faith"},
	{"HOW DO YOU FEEL?", "HOW YOU FEEL?"},
	{"Restless, Irritable, Guilt, Shame, Discontent", "Peaceful, Serene, Loving, Content"},
}

// HeaderRowIndex is the non-answerable separator row inside TraitPairs.
const HeaderRowIndex = 22

// RowCount is the length of every persisted answer array.
func RowCount() int { return len(TraitPairs) }

// AnswerableRowCount excludes the header separator.
func AnswerableRowCount() int { return len(TraitPairs) - 1 }

// IsAnswerable reports whether a row index may carry an answer.
func IsAnswerable(index int) bool {
	return index >= 0 && index < len(TraitPairs) && index != HeaderRowIndex
}
