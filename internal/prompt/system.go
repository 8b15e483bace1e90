package prompt

import "fmt"

// Capability selects the model role a prompt is sent to.
type Capability string

const (
	CapSummary Capability = "summary"
	CapReadme  Capability = "readme"
	CapComment Capability = "comment"
)

// CapabilityFor maps a task to the model role that serves it.
func CapabilityFor(task Task) Capability {
	switch task {
	case TaskAnnotate:
		return CapComment
	case TaskReadmeSection, TaskReadme, TaskDiagram:
		return CapReadme
	default:
		return CapSummary
	}
}

// SystemPrompt returns the system instruction for a capability.
func SystemPrompt(c Capability, language string) string {
	switch c {
	case CapSummary:
		if language == "" {
			language = "polyglot"
		}
		return fmt.Sprintf("You are a highly skilled senior %s software engineer. "+
			"Always write precise, technical, and concise output without adding explanations or extra commentary.", language)
	case CapReadme:
		return "You are a technical writer and documentation specialist. " +
			"You create clean, professional, and well-structured Markdown documentation. " +
			"Always be concise, precise, and avoid adding any extra commentary or text."
	default:
		return ""
	}
}
