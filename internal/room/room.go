package room

import (
	"time"
)

// Status is the lifecycle state of a room.
//
// State machine:
//
//	waiting → character_select → playing → ended
//
// waiting → ended is reachable directly when the last member leaves.
type Status string

const (
	StatusWaiting         Status = "waiting"
	StatusCharacterSelect Status = "character_select"
	StatusPlaying         Status = "playing"
	StatusEnded           Status = "ended"
)

// DefaultHeroPool lists the playable heroes. Ten entries so a full room
// can always lock distinct heroes.
var DefaultHeroPool = []string{
	"fox", "prometheus", "athena", "shadow", "blaze",
	"luna", "titan", "viper", "ember", "frost",
}

// Member is a human or bot participant in a room. HeroID is non-empty
// only while HeroLocked is true.
type Member struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	IsHost     bool      `json:"isHost"`
	IsBot      bool      `json:"isBot"`
	IsReady    bool      `json:"isReady"`
	HeroLocked bool      `json:"heroLocked"`
	HeroID     string    `json:"heroId,omitempty"`
	JoinedAt   time.Time `json:"joinedAt"`
}

// Room is the lobby/match container. Members is kept in join order, so
// Members[0] is always the current host while the room is non-empty.
type Room struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	HostID    string         `json:"hostId"`
	Status    Status         `json:"status"`
	Capacity  int            `json:"capacity"`
	TimeLimit int            `json:"timeLimit"` // seconds
	MapID     string         `json:"mapId,omitempty"`
	GameMode  string         `json:"gameMode"`
	Settings  map[string]any `json:"settings,omitempty"`
	Members   []Member       `json:"members"`
	Result    *Result        `json:"result,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Result is the outcome snapshot stored on the room when a match ends.
type Result struct {
	ElapsedSeconds int            `json:"elapsedSeconds"`
	EndedAt        time.Time      `json:"endedAt"`
	Players        []PlayerResult `json:"players"`
}

// PlayerResult is one member's final standing.
type PlayerResult struct {
	UserID    string   `json:"userId"`
	HeroID    string   `json:"heroId"`
	Score     int      `json:"score"`
	Inventory []string `json:"inventory"`
}

// Member returns a pointer into the member list, or nil.
func (r *Room) Member(userID string) *Member {
	for i := range r.Members {
		if r.Members[i].UserID == userID {
			return &r.Members[i]
		}
	}
	return nil
}

// RemoveMember drops the member and, if the host left, promotes the
// earliest remaining joiner. Reports whether the member existed.
func (r *Room) RemoveMember(userID string) bool {
	idx := -1
	for i := range r.Members {
		if r.Members[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	wasHost := r.Members[idx].IsHost
	r.Members = append(r.Members[:idx], r.Members[idx+1:]...)
	if wasHost && len(r.Members) > 0 {
		// Members is in join order, so the head is the earliest joiner.
		r.Members[0].IsHost = true
		r.HostID = r.Members[0].UserID
	}
	return true
}

// AllReady reports whether every member, host included, has readied up.
func (r *Room) AllReady() bool {
	for i := range r.Members {
		if !r.Members[i].IsReady {
			return false
		}
	}
	return len(r.Members) > 0
}

// AllLocked reports whether every member holds a hero lock.
func (r *Room) AllLocked() bool {
	for i := range r.Members {
		if !r.Members[i].HeroLocked {
			return false
		}
	}
	return len(r.Members) > 0
}

// AllHumansLocked reports whether every non-bot member holds a hero lock.
func (r *Room) AllHumansLocked() bool {
	for i := range r.Members {
		if !r.Members[i].IsBot && !r.Members[i].HeroLocked {
			return false
		}
	}
	return true
}

// HeroHolder returns the user currently locking heroID, if any.
func (r *Room) HeroHolder(heroID string) (string, bool) {
	for i := range r.Members {
		if r.Members[i].HeroLocked && r.Members[i].HeroID == heroID {
			return r.Members[i].UserID, true
		}
	}
	return "", false
}

// AvailableHeroes filters the pool down to heroes nobody in the room
// has locked yet.
func (r *Room) AvailableHeroes(pool []string) []string {
	out := make([]string, 0, len(pool))
	for _, h := range pool {
		if _, taken := r.HeroHolder(h); !taken {
			out = append(out, h)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand to callers outside the manager.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Members = make([]Member, len(r.Members))
	copy(cp.Members, r.Members)
	if r.Settings != nil {
		cp.Settings = make(map[string]any, len(r.Settings))
		for k, v := range r.Settings {
			cp.Settings[k] = v
		}
	}
	if r.Result != nil {
		res := *r.Result
		res.Players = append([]PlayerResult(nil), r.Result.Players...)
		cp.Result = &res
	}
	return &cp
}
