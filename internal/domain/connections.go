package domain

import "time"

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	ConnectionStatusRejected ConnectionStatus = "rejected"
)

// ConnectionRequest is a pending friend request as seen by one side of it.
// User is the other party: the requester on incoming requests, the receiver
// on outgoing ones.
type ConnectionRequest struct {
	ID        string      `json:"id"`
	User      UserSummary `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
}

// ConnectionsOverview is the friends screen payload: accepted friends plus
// both directions of unresolved requests.
type ConnectionsOverview struct {
	Friends  []UserSummary       `json:"friends"`
	Incoming []ConnectionRequest `json:"incoming_requests"`
	Outgoing []ConnectionRequest `json:"outgoing_requests"`
}
