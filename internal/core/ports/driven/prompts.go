package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptGroundedSystem restricts answers to the supplied document excerpts.
	// This prompt has no format placeholders.
	PromptGroundedSystem = "grounded_system"

	// PromptUngroundedSystem is used when retrieval found nothing relevant.
	// It must make the model state that no relevant document content was found.
	// This prompt has no format placeholders.
	PromptUngroundedSystem = "ungrounded_system"
)

// DefaultPrompts returns the built-in prompt texts keyed by prompt name.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptGroundedSystem: `You answer questions using only the document excerpts provided below.
Each excerpt is numbered and names the file it came from.

Rules:
1. Base every statement on the excerpts. Do not add facts from general knowledge.
2. Cite the excerpts you used with their numbers, for example [1] or [2][3].
3. If the excerpts do not contain the answer, say that the uploaded documents do not cover it.
4. Be concise.`,

		PromptUngroundedSystem: `No relevant content was found in the uploaded documents for this question.
Tell the user plainly that their documents do not contain information about it.
Do not answer from general knowledge. You may suggest uploading a document that covers the topic or rephrasing the question.`,
	}
}
