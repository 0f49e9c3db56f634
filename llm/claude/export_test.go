package claude

var ConvertMessages = convertMessages
