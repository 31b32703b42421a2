package typewriter

// RevealTickEvent carries the prefix shown in a display slot after one more rune was revealed.
type RevealTickEvent struct {
	Slot   string `json:"slot"`
	Prefix string `json:"prefix"`
	Tick   int    `json:"tick"`
}

func (e *RevealTickEvent) GetId() string {
	return "typewriter.tick"
}

func (e *RevealTickEvent) External() {}

// RevealCompletedEvent means the slot now shows Text verbatim.
type RevealCompletedEvent struct {
	Slot string `json:"slot"`
	Text string `json:"text"`
}

func (e *RevealCompletedEvent) GetId() string {
	return "typewriter.completed"
}

func (e *RevealCompletedEvent) External() {}
