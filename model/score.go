package model

// ScoreSummary is the aggregate result of one session, handed to the
// reporting layer when the shift ends.
type ScoreSummary struct {
	Points    int  `json:"points"`
	Received  int  `json:"received"`
	Answered  int  `json:"answered"`
	Connected int  `json:"connected"`
	Dropped   int  `json:"dropped"`
	Approved  bool `json:"approved"`
}
