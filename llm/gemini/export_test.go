package gemini

var ConvertMessages = convertMessages
