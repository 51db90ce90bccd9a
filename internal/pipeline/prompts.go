package pipeline

// Behavioral framings per mode. These change how the model answers, not
// what data it sees.

const (
	generalFraming = `You are a helpful AI assistant. Provide informative and relevant responses to the user's messages, taking the conversation history into account to maintain context and coherence.`

	codingFraming = `You are an expert code generator. The user describes the code they want; generate a snippet that satisfies the request and enclose it in markdown code fences. Keep explanations brief and place them after the code.`

	cognitiveFraming = `You are a structured thinking partner. Help the user reason through the problem step by step: clarify the question, lay out the relevant considerations, and work toward a conclusion. Prefer short numbered steps over prose.`

	taskFraming = `You are an AI assistant specialized in automating repetitive tasks. Based on the user's description of the task, generate an automation script and explain how it works. Present the script in a fenced code block followed by the explanation.`
)

// modeFraming returns the system guidance for a single-stage mode.
// Knowledge mode never reaches here; it has its own staged prompts.
func modeFraming(mode Mode) string {
	switch mode {
	case ModeCoding:
		return codingFraming
	case ModeCognitive:
		return cognitiveFraming
	case ModeTask:
		return taskFraming
	default:
		return generalFraming
	}
}

// Knowledge-stage prompt templates. Placeholders: question, document.
const (
	classifyPrompt = `You are an AI study assistant. Determine if the following question requires a summary of the document to answer it. Return true if a summary is required, false otherwise.

Question: %s
Document: %s`

	summaryPrompt = `You are an AI study assistant. Summarize the following document.

Document: %s`

	answerPrompt = `You are an AI study assistant. Answer the following question using the provided document and summary if available.

Question: %s
Document: %s
Summary: %s`
)
