package database

// ChatKey is the sign-insensitive identity of a chat. Telegram reports groups
// with negative ids while exports and older records may carry the positive
// form; both map to the same key.
type ChatKey int64

// KeyOf normalizes a signed chat id into its ChatKey.
func KeyOf(chatID int64) ChatKey {
	if chatID < 0 {
		return ChatKey(-chatID)
	}
	return ChatKey(chatID)
}

// Int64 returns the key as a plain integer.
func (k ChatKey) Int64() int64 {
	return int64(k)
}
