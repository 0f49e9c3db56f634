package openai

var (
	ConvertMessages = convertMessages
	ConvertRole     = convertRole
)
