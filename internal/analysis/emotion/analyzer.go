package emotion

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// bucket 按优先级排列，先命中的类别胜出。
type bucket struct {
	label    Label
	keywords []string
}

var keywordBuckets = []bucket{
	{Sad, []string{
		"sad", "depressed", "unhappy", "down", "hopeless", "tired", "cry", "miserable", "worthless",
		"துக்கம்", "உடைந்துவிட்டேன்", "மனமுடைந்து", "ஏமாற்றம்", "தவிக்கும்",
		"उदास", "निराश", "दुखी", "थका", "रूला", "मायूस", "बेकार", "व्यर्थ", "एकाकी", "दुख",
		"triste", "deprimido", "deprimida", "llorar",
	}},
	{Angry, []string{
		"angry", "mad", "furious", "frustrated", "irritated", "annoyed", "rage",
		"கோபம்", "முரட்டு", "வெறுப்பு", "சண்டை",
		"गुस्सा", "नाराज़", "चिड़ा", "क्रोधित", "खिन्न", "झुंझलाया",
		"enojado", "enojada", "furioso", "furiosa", "rabia",
	}},
	{Anxious, []string{
		"anxious", "nervous", "worried", "scared", "afraid", "panic", "tense", "overwhelmed",
		"பயம்", "கவலை", "அச்சம்", "இடையூறு",
		"चिंता", "डर", "घबराया", "अशांत", "बेचैन", "भयभीत", "परेशान",
		"ansioso", "ansiosa", "nervioso", "nerviosa", "preocupado", "preocupada", "miedo",
	}},
	{Happy, []string{
		"happy", "joyful", "excited", "grateful", "good", "glad", "content", "blessed", "love", "great",
		"மகிழ்ச்சி", "பிரியமான", "சந்தோஷமாக", "ரசிக்கிறேன்",
		"खुश", "प्रसन्न", "सुखी", "हर्षित", "आनंदित", "मजा", "शुक्रगुजार", "अच्छा",
		"feliz", "contento", "contenta", "alegre", "agradecido", "agradecida",
	}},
	{Lonely, []string{
		"lonely", "alone", "isolated", "abandoned", "ignored", "neglected",
		"தனிமை", "இக்கோணமாக",
		"अकेला", "एकाकी", "तन्हा", "अनाथ", "अलग", "उपेक्षित",
		"soledad", "abandonado", "abandonada", "aislado", "aislada",
	}},
}

// foldedBuckets 与 keywordBuckets 顺序一致，关键词经过与输入相同的规范化处理。
var foldedBuckets = foldBuckets(keywordBuckets)

type foldedBucket struct {
	label    Label
	keywords map[string]struct{}
}

func foldBuckets(buckets []bucket) []foldedBucket {
	out := make([]foldedBucket, 0, len(buckets))
	for _, b := range buckets {
		set := make(map[string]struct{}, len(b.keywords))
		for _, kw := range b.keywords {
			for _, token := range tokenize(kw) {
				set[token] = struct{}{}
			}
		}
		out = append(out, foldedBucket{label: b.label, keywords: set})
	}
	return out
}

// Classify 根据关键词推断用户消息的情绪。纯函数，不会失败。
func Classify(text string) Label {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Neutral
	}

	for _, b := range foldedBuckets {
		for _, token := range tokens {
			if _, ok := b.keywords[token]; ok {
				return b.label
			}
		}
	}
	return Neutral
}

// tokenize normalizes to NFKC, lowercases, folds latin diacritics and drops
// punctuation. Letters of every script survive.
func tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	normalized := strings.ToLower(norm.NFKC.String(text))
	if folded, _, err := transform.String(newMarkFolder(), normalized); err == nil {
		normalized = folded
	}

	var builder strings.Builder
	builder.Grow(len(normalized))
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsNumber(r):
			builder.WriteRune(r)
		case unicode.IsSpace(r):
			builder.WriteRune(' ')
		}
	}
	return strings.Fields(builder.String())
}

// latinDiacritic 只覆盖 Combining Diacritical Marks 区块；印度系文字的元音符号与 virama 属于词形本身，必须保留。
var latinDiacritic = runes.Predicate(func(r rune) bool {
	return r >= 0x0300 && r <= 0x036F
})

// newMarkFolder 每次调用都新建，transform.Transformer 带状态，不能并发共享。
func newMarkFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(latinDiacritic), norm.NFC)
}
