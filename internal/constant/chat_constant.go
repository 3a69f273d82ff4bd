package constant

// DefaultChatTitle is used when a chat is created without a title.
const DefaultChatTitle = "New Conversation"
