package realtime

// Topics a subscriber may join: one per conversation, the shared
// notification channel, and one per status filter. Prefixes keep the
// namespaces from colliding.
const TopicNotification = "notification"

func ConversationTopic(id string) string {
	return "conversation:" + id
}

func StatusTopic(filter string) string {
	return "status:" + filter
}
