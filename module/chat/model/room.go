package model

// Room is a conversation, direct or group. Membership is fixed from
// the engine's point of view; changing it is a storage-level concern.
type Room struct {
	ID            string   `bson:"_id" json:"id"`
	Participants  []string `bson:"participants" json:"participants"`
	IsGroup       bool     `bson:"is_group" json:"isGroup"`
	GroupName     string   `bson:"group_name,omitempty" json:"groupName,omitempty"`
	AdminID       string   `bson:"admin_id,omitempty" json:"adminId,omitempty"`
	LastMessageID string   `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastMessageAt int64    `bson:"last_message_at,omitempty" json:"lastMessageAt,omitempty"` // Unix ms
}

func (r *Room) HasParticipant(user string) bool {
	for _, p := range r.Participants {
		if p == user {
			return true
		}
	}
	return false
}
