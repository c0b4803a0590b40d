package api

import "github.com/example/likechat/modules/activity"

// RoomResponse is the API response for a room.
type RoomResponse struct {
	Name     string                 `json:"name"`
	Members  int                    `json:"members"`
	Activity *activity.RoomActivity `json:"activity,omitempty"`
}

// RoomListResponse is the API response for listing live rooms.
type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
