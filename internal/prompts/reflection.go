package prompts

import "fmt"

// BuildReflectionPrompt assembles Phase 5's end-of-day reflection prompt, requesting a
// 3-to-5-sentence summary of the day's trading informed by the performance context.
func BuildReflectionPrompt(date string, performanceContext string) string {
	return fmt.Sprintf(
		"You are writing a brief end-of-day reflection for an autonomous options-trading engine.\n\n"+
			"Date: %s\n\n"+
			"%s\n\n"+
			"Write a 3-to-5-sentence summary of how the day went, what the performance context "+
			"suggests about recent decision quality, and anything the engine should watch for tomorrow. "+
			"Respond with plain prose, no delimiters.\n",
		date, performanceContext,
	)
}
