package recognitions

import "time"

// Event is one identification returned by the recognition endpoint.
type Event struct {
	StudentID string `json:"student_id"`
	Time      string `json:"time"`
}

// Snapshot is the content of the register after one applied response.
type Snapshot struct {
	// Seq is the sequence number of the frame the events were recognized in.
	Seq       uint64    `json:"seq"`
	Events    []Event   `json:"recognized_faces"`
	UpdatedAt time.Time `json:"updated_at"`
}
