package models

// DefaultModel is the Groq model used when the config does not name one.
const DefaultModel = "llama-3.1-8b-instant"

const DefaultSystemPrompt = `You are a knowledgeable and friendly home assistant AI specializing in household topics. Your expertise includes:

- Appliance repair and troubleshooting (refrigerators, washing machines, dishwashers, HVAC, etc.)
- Home maintenance and DIY projects
- Cleaning tips and techniques
- Organization and storage solutions
- Energy efficiency and cost-saving tips
- Safety guidelines for home repairs
- Seasonal home care (winterizing, spring cleaning, etc.)
- Kitchen tips and cooking hacks
- Gardening and lawn care basics
- Interior design and decorating advice

Always provide:
- Clear, step-by-step instructions when applicable
- Safety warnings when dealing with electrical, plumbing, or potentially dangerous tasks
- Cost-effective solutions when possible
- Alternative approaches for different skill levels
- Recommendations to call professionals when tasks are beyond DIY scope

Be conversational, helpful, and encouraging. If you're unsure about something, recommend consulting a professional rather than guessing.`

// SafetyTip is shown under the conversation.
const SafetyTip = "Tip: Always prioritize safety and consult professionals for complex electrical or plumbing work."

type Category struct {
	Title       string
	Description string
	Examples    []string
}

var Categories = []Category{
	{
		Title:       "Appliance Repair",
		Description: "Fix common household appliances",
		Examples:    []string{"My dishwasher won't drain", "Refrigerator making noise", "Washing machine won't spin"},
	},
	{
		Title:       "Home Maintenance",
		Description: "Keep your home in top condition",
		Examples:    []string{"How to caulk a bathtub", "Fixing a leaky faucet", "Painting interior walls"},
	},
	{
		Title:       "Life Hacks",
		Description: "Smart tips for easier living",
		Examples:    []string{"Remove stubborn stains", "Organize small spaces", "Energy saving tips"},
	},
	{
		Title:       "Quick Fixes",
		Description: "Fast solutions for common problems",
		Examples:    []string{"Unclog a drain", "Fix a squeaky door", "Remove scratches from furniture"},
	},
}
