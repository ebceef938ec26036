package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/ai"
	"github.com/zhouzirui/mindmate/backend/internal/service/history"
	"github.com/zhouzirui/mindmate/backend/internal/service/outcome"
	"github.com/zhouzirui/mindmate/backend/internal/telemetry"
)

var (
	ErrMessageRequired  = errors.New("message is required")
	ErrImageRequired    = errors.New("image data is required for video chat")
	ErrInvalidImage     = errors.New("invalid image data format, please provide base64 encoded image")
	ErrIdentityRequired = errors.New("authentication required")
)

const (
	// DefaultVideoMessage 视频请求没有附带文字时使用的上下文句子。
	DefaultVideoMessage = "I'm sharing my video with you. How are you feeling about my current state?"
	videoContentPrefix  = "[Video Chat] "

	videoMaxTokens   = 200
	videoTemperature = 0.7

	videoHistoryLimit    = 50
	defaultAnalyticsDays = 30
)

// Translator 翻译与语言检测，失败时返回 Degraded。
type Translator interface {
	Translate(ctx context.Context, text, source, target string) outcome.Result[string]
	DetectLanguage(ctx context.Context, text string) outcome.Result[string]
}

// FrameClassifier 识别视频帧情绪，从不返回 Failed。
type FrameClassifier interface {
	ClassifyFrame(ctx context.Context, base64Data string) outcome.Result[emotion.Label]
}

// Completer 调用语言模型。
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string, opts ...model.Option) outcome.Result[string]
}

// Dependencies 是编排器依赖的外部协作方。Store 与 Observer 可以为空。
type Dependencies struct {
	Store      history.Store
	Translator Translator
	Frames     FrameClassifier
	Completer  Completer
	Observer   telemetry.Observer
	Now        func() time.Time
}

// Service 编排一次聊天请求：翻译、情绪识别、提示词、模型调用、回译与持久化。
type Service struct {
	store      history.Store
	translator Translator
	frames     FrameClassifier
	completer  Completer
	observer   telemetry.Observer
	now        func() time.Time
}

// NewService wires the orchestrator.
func NewService(deps Dependencies) *Service {
	svc := &Service{
		store:      deps.Store,
		translator: deps.Translator,
		frames:     deps.Frames,
		completer:  deps.Completer,
		observer:   deps.Observer,
		now:        deps.Now,
	}
	if svc.observer == nil {
		svc.observer = telemetry.Nop{}
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.completer == nil {
		svc.completer = ai.Unavailable{}
	}
	return svc
}

// TextRequest is an inbound text chat message. UserID is empty for anonymous callers.
type TextRequest struct {
	RequestID string
	UserID    string
	Message   string
	Language  string
}

type TextReply struct {
	Reply   string        `json:"reply"`
	Emotion emotion.Label `json:"emotion"`
}

// VideoRequest carries one frame of the caller's video and an optional message.
type VideoRequest struct {
	RequestID string
	UserID    string
	ImageData string
	Message   string
	Language  string
}

type VideoReply struct {
	Reply     string        `json:"reply"`
	Emotion   emotion.Label `json:"emotion"`
	Language  string        `json:"language"`
	Timestamp time.Time     `json:"timestamp"`
}

// run 保存单次请求的上下文，用于发出阶段事件。
type run struct {
	svc       *Service
	requestID string
	entry     string
	started   time.Time
}

func (s *Service) newRun(requestID, entry string) *run {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &run{svc: s, requestID: requestID, entry: entry, started: time.Now()}
}

func (r *run) emit(ctx context.Context, stage telemetry.Stage, out telemetry.Outcome, detail string, err error) {
	r.svc.observer.Observe(ctx, telemetry.Event{
		RequestID: r.requestID,
		Entry:     r.entry,
		Stage:     stage,
		Outcome:   out,
		Detail:    detail,
		Err:       err,
		Elapsed:   time.Since(r.started),
	})
}

func resultOutcome[T any](res outcome.Result[T]) telemetry.Outcome {
	switch {
	case res.OK():
		return telemetry.OutcomeOK
	case res.IsDegraded():
		return telemetry.OutcomeDegraded
	default:
		return telemetry.OutcomeFailed
	}
}

// Text 处理文字聊天。
func (s *Service) Text(ctx context.Context, req TextRequest) (TextReply, error) {
	r := s.newRun(req.RequestID, "text")

	message := strings.TrimSpace(req.Message)
	if message == "" {
		r.emit(ctx, telemetry.StageValidate, telemetry.OutcomeRejected, "", ErrMessageRequired)
		return TextReply{}, ErrMessageRequired
	}
	lang := s.resolveLanguage(ctx, req.Language, message)
	r.emit(ctx, telemetry.StageValidate, telemetry.OutcomeOK, "language="+lang, nil)

	english := s.toEnglish(ctx, r, message, lang)

	label := emotion.Classify(english)
	r.emit(ctx, telemetry.StageClassify, telemetry.OutcomeOK, "emotion="+label.String(), nil)

	systemPrompt := ai.BuildSystemPrompt(label)
	r.emit(ctx, telemetry.StagePrompt, telemetry.OutcomeOK, "", nil)

	reply, err := s.complete(ctx, r, systemPrompt, english)
	if err != nil {
		return TextReply{}, err
	}

	final := s.fromEnglish(ctx, r, reply, lang)

	s.persist(ctx, r, req.UserID, chat.NewTurn(req.UserID, chat.SessionText, req.Message, final, label, s.now()))

	r.emit(ctx, telemetry.StageRespond, telemetry.OutcomeOK, "", nil)
	return TextReply{Reply: final, Emotion: label}, nil
}

// Video 处理视频聊天：情绪来自视频帧，提示词使用视频模板。
func (s *Service) Video(ctx context.Context, req VideoRequest) (VideoReply, error) {
	r := s.newRun(req.RequestID, "video")

	if req.ImageData == "" {
		r.emit(ctx, telemetry.StageValidate, telemetry.OutcomeRejected, "", ErrImageRequired)
		return VideoReply{}, ErrImageRequired
	}
	if err := emotion.ValidateFrame(req.ImageData); err != nil {
		r.emit(ctx, telemetry.StageValidate, telemetry.OutcomeRejected, "", err)
		return VideoReply{}, ErrInvalidImage
	}

	contextMessage := strings.TrimSpace(req.Message)
	lang := s.resolveLanguage(ctx, req.Language, contextMessage)
	r.emit(ctx, telemetry.StageValidate, telemetry.OutcomeOK, "language="+lang, nil)

	var english string
	if contextMessage == "" {
		contextMessage = DefaultVideoMessage
		english = DefaultVideoMessage
		r.emit(ctx, telemetry.StageNormalize, telemetry.OutcomeSkipped, "default message", nil)
	} else {
		english = s.toEnglish(ctx, r, contextMessage, lang)
	}

	label := s.classifyFrame(ctx, r, emotion.ExtractBase64(req.ImageData))

	systemPrompt := ai.BuildVideoSystemPrompt(label)
	r.emit(ctx, telemetry.StagePrompt, telemetry.OutcomeOK, "", nil)

	reply, err := s.complete(ctx, r, systemPrompt, english,
		model.WithMaxTokens(videoMaxTokens),
		model.WithTemperature(videoTemperature),
	)
	if err != nil {
		return VideoReply{}, err
	}

	final := s.fromEnglish(ctx, r, reply, lang)
	at := s.now()

	s.persist(ctx, r, req.UserID, chat.NewTurn(req.UserID, chat.SessionVideo, videoContentPrefix+contextMessage, final, label, at))

	r.emit(ctx, telemetry.StageRespond, telemetry.OutcomeOK, "", nil)
	return VideoReply{Reply: final, Emotion: label, Language: lang, Timestamp: at.UTC()}, nil
}

func (s *Service) toEnglish(ctx context.Context, r *run, text, lang string) string {
	if lang == DefaultLanguage || s.translator == nil {
		r.emit(ctx, telemetry.StageNormalize, telemetry.OutcomeSkipped, "", nil)
		return text
	}
	res := s.translator.Translate(ctx, text, lang, DefaultLanguage)
	r.emit(ctx, telemetry.StageNormalize, resultOutcome(res), lang+"->en", res.Reason)
	if !res.Usable() {
		return text
	}
	return res.Value
}

func (s *Service) fromEnglish(ctx context.Context, r *run, text, lang string) string {
	if lang == DefaultLanguage || s.translator == nil {
		r.emit(ctx, telemetry.StageLocalize, telemetry.OutcomeSkipped, "", nil)
		return text
	}
	res := s.translator.Translate(ctx, text, DefaultLanguage, lang)
	r.emit(ctx, telemetry.StageLocalize, resultOutcome(res), "en->"+lang, res.Reason)
	if !res.Usable() {
		return text
	}
	return res.Value
}

func (s *Service) classifyFrame(ctx context.Context, r *run, base64Data string) emotion.Label {
	if s.frames == nil {
		label := emotion.FallbackFrameLabel(base64Data)
		r.emit(ctx, telemetry.StageClassify, telemetry.OutcomeDegraded, "emotion="+label.String(), errors.New("no frame classifier"))
		return label
	}
	res := s.frames.ClassifyFrame(ctx, base64Data)
	label := res.Value.OrNeutral()
	if res.IsFailed() {
		label = emotion.FallbackFrameLabel(base64Data)
	}
	r.emit(ctx, telemetry.StageClassify, resultOutcome(res), "emotion="+label.String(), res.Reason)
	return label
}

func (s *Service) complete(ctx context.Context, r *run, systemPrompt, userText string, opts ...model.Option) (string, error) {
	res := s.completer.Complete(ctx, systemPrompt, userText, opts...)
	reply, err := res.Unwrap()
	if err != nil {
		if !errors.Is(err, ai.ErrModelUnavailable) {
			err = fmt.Errorf("%w: %w", ai.ErrModelUnavailable, err)
		}
		r.emit(ctx, telemetry.StageComplete, telemetry.OutcomeFailed, "", err)
		return "", err
	}
	r.emit(ctx, telemetry.StageComplete, resultOutcome(res), "", res.Reason)
	return reply, nil
}

// persist 尽力写入，失败只记录事件，不影响回复。
func (s *Service) persist(ctx context.Context, r *run, userID string, turn chat.Turn) {
	if userID == "" {
		r.emit(ctx, telemetry.StagePersist, telemetry.OutcomeSkipped, "anonymous", nil)
		return
	}
	if s.store == nil {
		r.emit(ctx, telemetry.StagePersist, telemetry.OutcomeSkipped, "no store", nil)
		return
	}
	saved, err := s.store.Append(ctx, turn)
	if err != nil {
		r.emit(ctx, telemetry.StagePersist, telemetry.OutcomeFailed, "", err)
		return
	}
	r.emit(ctx, telemetry.StagePersist, telemetry.OutcomeOK, "turn="+saved.ID, nil)
}
