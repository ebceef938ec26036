package emotion

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidFrame 表示视频帧既不是合法的 data URI，也不是足够长的 base64 字符串。
var ErrInvalidFrame = errors.New("invalid image data format")

const (
	minRawBase64Length = 100
	fallbackPrefixLen  = 100
)

var (
	dataURIPattern   = regexp.MustCompile(`^data:image/(jpeg|jpg|png|gif|webp);base64,`)
	rawBase64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)
)

// frameFallbackOrder is indexed by hash mod len.
var frameFallbackOrder = []Label{Happy, Sad, Neutral, Anxious, Angry, Excited}

// ValidateFrame accepts a data:image URI with an allowed subtype, or raw base64
// longer than 100 characters.
func ValidateFrame(data string) error {
	if data == "" {
		return ErrInvalidFrame
	}
	if dataURIPattern.MatchString(data) {
		return nil
	}
	if len(data) > minRawBase64Length && rawBase64Pattern.MatchString(data) {
		return nil
	}
	return ErrInvalidFrame
}

// ExtractBase64 strips a data URI header and returns the payload unchanged otherwise.
func ExtractBase64(data string) string {
	if strings.HasPrefix(data, "data:image/") {
		if _, payload, ok := strings.Cut(data, ","); ok {
			return payload
		}
		return ""
	}
	return data
}

// FallbackFrameLabel 在远程识别不可用时给出确定性的情绪：对前 100 个字节做滚动哈希后取模。
func FallbackFrameLabel(base64Data string) Label {
	prefix := base64Data
	if len(prefix) > fallbackPrefixLen {
		prefix = prefix[:fallbackPrefixLen]
	}

	var hash int32
	for i := 0; i < len(prefix); i++ {
		hash = (hash << 5) - hash + int32(prefix[i])
	}

	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}
	return frameFallbackOrder[abs%int64(len(frameFallbackOrder))]
}
