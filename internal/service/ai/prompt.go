package ai

import (
	"fmt"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
)

const therapistPreamble = "You are an empathetic AI therapist. "

const defaultInstruction = "Be kind and supportive as a mental health assistant."

// textInstructions 文字聊天中各情绪对应的回复要求，未列出的标签使用 defaultInstruction。
var textInstructions = map[emotion.Label]string{
	emotion.Sad:     "Respond with empathy and reassurance.",
	emotion.Happy:   "Celebrate their joy and encourage positivity.",
	emotion.Anxious: "Speak calmly and acknowledge anxiety.",
	emotion.Angry:   "Stay composed and offer support.",
	emotion.Lonely:  "Offer company and caring words.",
	emotion.Excited: "Share their enthusiasm and help them channel it constructively.",
}

// BuildSystemPrompt 根据用户情绪生成文字聊天的系统提示词。
func BuildSystemPrompt(label emotion.Label) string {
	instruction, ok := textInstructions[label]
	if !ok {
		instruction = defaultInstruction
	}
	return therapistPreamble + instruction
}

const defaultVideoGuidance = "Respond with empathy and provide supportive guidance based on the user's current emotional state."

var videoGuidance = map[emotion.Label]string{
	emotion.Happy:   "The user appears to be happy and joyful. Celebrate their positive mood and encourage them to maintain this wonderful state. Offer suggestions for sustaining happiness.",
	emotion.Sad:     "The user seems to be feeling sad or down. Respond with extra empathy, care, and gentle support. Offer comforting words and practical coping strategies.",
	emotion.Angry:   "The user appears to be angry or frustrated. Acknowledge their feelings calmly and help them process these emotions constructively. Suggest healthy ways to manage anger.",
	emotion.Anxious: "The user seems anxious or worried. Be supportive and offer calming advice. Provide grounding techniques and reassurance.",
	emotion.Excited: "The user appears excited and energetic. Match their enthusiasm appropriately while helping them channel this positive energy constructively.",
	emotion.Neutral: "The user appears calm and neutral. Engage them in a balanced, supportive conversation and check in on their overall wellbeing.",
}

const videoPromptTemplate = `You are a compassionate and empathetic mental health support assistant for MindMate. You can see the user through video chat and have detected their current emotional state.

Current user emotion: %s

Guidance: %s

Respond in a warm, understanding manner. Keep your response concise but meaningful (2-3 sentences). Focus on:
1. Acknowledging their current emotional state
2. Providing appropriate support or encouragement
3. Offering a practical suggestion if relevant

Be culturally sensitive and avoid clinical language. Speak as a caring friend who understands emotions.`

// BuildVideoSystemPrompt 视频聊天的提示词，模型被告知可以通过视频看到用户。
func BuildVideoSystemPrompt(label emotion.Label) string {
	guidance, ok := videoGuidance[label]
	if !ok {
		guidance = defaultVideoGuidance
	}
	return fmt.Sprintf(videoPromptTemplate, label, guidance)
}
