package domain

// Messages are the fixed, user-facing texts the engine falls back to.
type Messages struct {
	Failure         string `json:"failure" koanf:"failure"`
	Apology         string `json:"apology" koanf:"apology"`
	SessionComplete string `json:"session_complete" koanf:"session_complete"`
	TurnLimit       string `json:"turn_limit" koanf:"turn_limit"`
	OffTopicLimit   string `json:"off_topic_limit" koanf:"off_topic_limit"`
	OffTopic        string `json:"off_topic" koanf:"off_topic"`
}

// DefaultMessages returns the built-in English texts.
func DefaultMessages() Messages {
	return Messages{
		Failure:         "Sorry, something went wrong while processing your message. Please try again.",
		Apology:         "Sorry, I could not come up with a reply. Could you say that again?",
		SessionComplete: "This conversation has already ended.",
		TurnLimit:       "We have been going for a while, so let's stop here. Thank you!",
		OffTopicLimit:   "It seems we keep drifting off topic, so I'll end the conversation here. Feel free to start again.",
		OffTopic:        "Let's get back on track.",
	}
}

// WithDefaults fills blank fields from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	if m.Failure == "" {
		m.Failure = d.Failure
	}
	if m.Apology == "" {
		m.Apology = d.Apology
	}
	if m.SessionComplete == "" {
		m.SessionComplete = d.SessionComplete
	}
	if m.TurnLimit == "" {
		m.TurnLimit = d.TurnLimit
	}
	if m.OffTopicLimit == "" {
		m.OffTopicLimit = d.OffTopicLimit
	}
	if m.OffTopic == "" {
		m.OffTopic = d.OffTopic
	}
	return m
}
