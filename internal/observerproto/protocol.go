package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeTick      = "TICK"
)

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// EveryTicks thins the stream to one TICK per that many ticks.
	EveryTicks int `json:"every_ticks,omitempty"`
}

// HTTP response for GET /v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string    `json:"protocol_version"`
	Tick            int       `json:"tick"`
	MapParams       MapParams `json:"map_params"`
	Robots          int       `json:"robots"`
	Algorithm       string    `json:"algorithm"`
	TickRateHz      int       `json:"tick_rate_hz"`
	Seed            uint64    `json:"seed"`
}

type MapParams struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Scale  float64    `json:"scale"`
	Offset [2]float64 `json:"offset"`

	// Rows uses the scenario alphabet, top row first.
	Rows []string `json:"rows"`
}

// Server -> Client. Sent whenever the simulation tick advances.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            int    `json:"tick"`

	ExploredTriangles  int     `json:"explored_triangles"`
	ExploredProportion float64 `json:"explored_proportion"`

	Robots        []RobotState        `json:"robots"`
	Communication *CommunicationState `json:"communication,omitempty"`
}

type RobotState struct {
	ID        int        `json:"id"`
	Status    string     `json:"status"`
	Task      string     `json:"task,omitempty"`
	Pos       [2]float64 `json:"pos"`
	Heading   float64    `json:"heading"`
	Colliding bool       `json:"colliding,omitempty"`
}

// CommunicationState is the most recent communication sample; its Tick may
// lag the message tick.
type CommunicationState struct {
	Tick                     int     `json:"tick"`
	Interconnected           bool    `json:"interconnected"`
	BiggestClusterPercentage float64 `json:"biggest_cluster_percentage"`
	Groups                   [][]int `json:"groups"`
}
