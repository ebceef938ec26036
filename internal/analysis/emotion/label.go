package emotion

import "strings"

// Label 表示会话中记录的情绪标签，是一个封闭集合。
type Label string

const (
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Anxious  Label = "anxious"
	Excited  Label = "excited"
	Neutral  Label = "neutral"
	Lonely   Label = "lonely"
	Confused Label = "confused"
	Engaged  Label = "engaged"
)

var allLabels = []Label{Happy, Sad, Angry, Anxious, Excited, Neutral, Lonely, Confused, Engaged}

// Parse maps free text onto the closed set.
func Parse(raw string) (Label, bool) {
	normalized := Label(strings.ToLower(strings.TrimSpace(raw)))
	for _, l := range allLabels {
		if l == normalized {
			return l, true
		}
	}
	return "", false
}

// OrNeutral returns l when it belongs to the closed set and Neutral otherwise.
func (l Label) OrNeutral() Label {
	if parsed, ok := Parse(string(l)); ok {
		return parsed
	}
	return Neutral
}

func (l Label) String() string { return string(l) }
