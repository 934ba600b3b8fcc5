package constant

const (
	ChatMessageRoleUser  = "USER"
	ChatMessageRoleModel = "MODEL"
)

// ChatPromptRulesV1 is the fixed instruction block prepended to every prompt.
const ChatPromptRulesV1 = "You are a helpful Q&A assistant for a note-taking app. Follow these strict rules:\n" +
	"1. Your primary context is a single note. It will be provided ONLY ONCE at the start of the conversation.\n" +
	"2. Your main goal is to answer the user's latest question concisely.\n" +
	"3. Base your answers ONLY on the note's content and the direct conversation history.\n\n"

// ChatPromptClosingV1 asks the model to answer the last user turn.
const ChatPromptClosingV1 = "--- CHAT HISTORY END ---\n" +
	"Now, following all the rules above, answer the last USER message.\n" +
	"MODEL: "

// ChatStreamFallbackMessage is written to the stream when generation or
// emission fails. It is never persisted as a MODEL turn.
const ChatStreamFallbackMessage = "Sorry, an error occurred while processing your request."
