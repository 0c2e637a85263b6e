package service

const (
	StepDescription = "description"
	StepCaption     = "caption"
)

const (
	describePrompt = "Describe this image clearly and objectively. " +
		"Mention visible objects, people, actions, environment, " +
		"mood, and any notable details. Do not write a caption."

	captionPromptTemplate = `You are a social media caption writer.

Image description:
%s

Instructions:
- Caption style: %s
- Caption length: %s
- %s
- %s

Write a natural, engaging caption based strictly on the description.
`
)
