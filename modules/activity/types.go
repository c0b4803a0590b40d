package activity

import (
	"sort"
	"sync"
	"time"
)

// RoomActivity holds relay counters for a single room.
type RoomActivity struct {
	Room            string    `json:"room"`
	Joins           int64     `json:"joins"`
	Leaves          int64     `json:"leaves"`
	Disconnects     int64     `json:"disconnects"`
	MessagesRelayed int64     `json:"messages_relayed"`
	LikesRelayed    int64     `json:"likes_relayed"`
	Deliveries      int64     `json:"deliveries"`
	LastActivity    time.Time `json:"last_activity,omitempty"`
}

// DefaultMaxRooms bounds the number of rooms tracked at once.
const DefaultMaxRooms = 10000

// ActivityStore provides thread-safe storage for room activity.
type ActivityStore struct {
	mu       sync.RWMutex
	rooms    map[string]*RoomActivity
	maxRooms int
}

// NewActivityStore creates a new activity store with default limits.
func NewActivityStore() *ActivityStore {
	return NewActivityStoreWithLimit(DefaultMaxRooms)
}

// NewActivityStoreWithLimit creates a new activity store with a custom limit.
// When full, the room with the oldest activity is forgotten.
func NewActivityStoreWithLimit(maxRooms int) *ActivityStore {
	if maxRooms <= 0 {
		maxRooms = DefaultMaxRooms
	}
	return &ActivityStore{
		rooms:    make(map[string]*RoomActivity),
		maxRooms: maxRooms,
	}
}

func (s *ActivityStore) room(name string, at time.Time) *RoomActivity {
	ra, ok := s.rooms[name]
	if !ok {
		if len(s.rooms) >= s.maxRooms {
			s.evictOldest()
		}
		ra = &RoomActivity{Room: name}
		s.rooms[name] = ra
	}
	if at.After(ra.LastActivity) {
		ra.LastActivity = at
	}
	return ra
}

func (s *ActivityStore) evictOldest() {
	var oldest *RoomActivity
	for _, ra := range s.rooms {
		if oldest == nil || ra.LastActivity.Before(oldest.LastActivity) {
			oldest = ra
		}
	}
	if oldest != nil {
		delete(s.rooms, oldest.Room)
	}
}

// RecordJoin counts a session joining room.
func (s *ActivityStore) RecordJoin(room string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room(room, at).Joins++
}

// RecordLeave counts a session leaving room.
func (s *ActivityStore) RecordLeave(room string, disconnected bool, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ra := s.room(room, at)
	ra.Leaves++
	if disconnected {
		ra.Disconnects++
	}
}

// RecordMessage counts a relayed chat message.
func (s *ActivityStore) RecordMessage(room string, recipients int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ra := s.room(room, at)
	ra.MessagesRelayed++
	ra.Deliveries += int64(recipients)
}

// RecordLike counts a relayed like toggle.
func (s *ActivityStore) RecordLike(room string, recipients int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ra := s.room(room, at)
	ra.LikesRelayed++
	ra.Deliveries += int64(recipients)
}

// Get returns a copy of the activity for room.
func (s *ActivityStore) Get(room string) (RoomActivity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ra, ok := s.rooms[room]
	if !ok {
		return RoomActivity{}, false
	}
	return *ra, true
}

// All returns every tracked room sorted by name.
func (s *ActivityStore) All() []RoomActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]RoomActivity, 0, len(s.rooms))
	for _, ra := range s.rooms {
		result = append(result, *ra)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Room < result[j].Room })
	return result
}
