package protocol

// auth (client -> server)
type AuthMsg struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
	SkinID   string `json:"skin_id,omitempty"`
}

// auth_success (server -> client)
type AuthSuccessMsg struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	XP       int64  `json:"xp"`
	Level    int    `json:"level"`
	SkinID   string `json:"skin_id"`
}

// auth_error (server -> client)
type AuthErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// update_input (client -> server): per-frame pointer intent, never acknowledged.
type UpdateInputMsg struct {
	Type string  `json:"type"`
	MX   float64 `json:"mx"`
	MY   float64 `json:"my"`
	VW   float64 `json:"vw"`
	VH   float64 `json:"vh"`
}

// change_skin (client -> server)
type ChangeSkinMsg struct {
	Type   string `json:"type"`
	SkinID string `json:"skin_id"`
}

// game_state (server -> client): the full world, every tick.
type GameStateMsg struct {
	Type    string                 `json:"type"`
	Players map[string]PlayerState `json:"players"`
	Food    []FoodState            `json:"food"`
}

type PlayerState struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	XP       int64       `json:"xp"`
	Level    int         `json:"level"`
	SkinID   string      `json:"skin_id"`
	Score    int64       `json:"score"`
	Blobs    []BlobState `json:"blobs"`
}

type BlobState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	R float64 `json:"r"`
}

type FoodState struct {
	ID    uint64  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"c"`
}
